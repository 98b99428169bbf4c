package gateway

import (
	"sync"
	"time"
)

// slidingWindow is a sliding-window call log with FIFO reservations. Each
// reservation takes the earliest slot at which fewer than limit calls fall in
// the preceding window, and slots are handed out in non-decreasing order, so a
// caller can never be overtaken by a later one.
type slidingWindow struct {
	mu    sync.Mutex
	limit int
	size  time.Duration
	slots []time.Time
}

func newSlidingWindow(limit int, size time.Duration) *slidingWindow {
	return &slidingWindow{limit: limit, size: size}
}

// reserve records and returns the start slot for the next call.
func (w *slidingWindow) reserve(now time.Time) time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	slot := now
	if n := len(w.slots); n > 0 {
		if last := w.slots[n-1]; last.After(slot) {
			slot = last
		}
		if n >= w.limit {
			if free := w.slots[n-w.limit].Add(w.size); free.After(slot) {
				slot = free
			}
		}
	}
	w.slots = append(w.slots, slot)
	return slot
}

// release gives back a reservation that was never used.
func (w *slidingWindow) release(slot time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := len(w.slots) - 1; i >= 0; i-- {
		if w.slots[i].Equal(slot) {
			w.slots = append(w.slots[:i], w.slots[i+1:]...)
			return
		}
	}
}

// prune drops slots that no longer fall inside the window ending at now.
func (w *slidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.size)
	i := 0
	for i < len(w.slots) && !w.slots[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.slots = append(w.slots[:0], w.slots[i:]...)
	}
}

// inWindow counts the slots inside the window ending at now.
func (w *slidingWindow) inWindow(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-w.size)
	count := 0
	for _, s := range w.slots {
		if s.After(cutoff) && !s.After(now) {
			count++
		}
	}
	return count
}
