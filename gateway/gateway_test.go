package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindow_Reserve(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	w := newSlidingWindow(2, time.Minute)

	assert.Equal(t, t0, w.reserve(t0))
	assert.Equal(t, t0, w.reserve(t0))
	assert.Equal(t, t0.Add(time.Minute), w.reserve(t0))
	assert.Equal(t, t0.Add(time.Minute), w.reserve(t0.Add(time.Second)))
	assert.Equal(t, t0.Add(2*time.Minute), w.reserve(t0.Add(2*time.Second)))
}

func TestSlidingWindow_SlotsNeverDecrease(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	w := newSlidingWindow(3, 10*time.Second)

	var last time.Time
	for i := 0; i < 50; i++ {
		slot := w.reserve(t0.Add(time.Duration(i) * time.Second))
		assert.False(t, slot.Before(last), "reservation %d went back in time", i)
		last = slot
	}
}

func TestSlidingWindow_ReleaseAndPrune(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	w := newSlidingWindow(1, time.Minute)

	assert.Equal(t, t0, w.reserve(t0))
	second := w.reserve(t0)
	assert.Equal(t, t0.Add(time.Minute), second)

	w.release(second)
	assert.Equal(t, t0.Add(time.Minute), w.reserve(t0), "released slot is reusable")

	later := t0.Add(3 * time.Minute)
	assert.Equal(t, later, w.reserve(later), "expired slots are pruned")
	assert.Equal(t, 1, w.inWindow(later))
}

func TestNewRegistry(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		r, err := NewRegistry(DefaultLimits())
		require.NoError(t, err)

		assert.Equal(t, []string{"gpt-4", "gpt-4o", "gpt-4o-mini"}, r.Models())
		l, ok := r.Limits("gpt-4o")
		require.True(t, ok)
		assert.Equal(t, Limits{CallsPerWindow: 100, TokensPerWindow: 30000, Window: time.Minute}, l)
	})

	t.Run("window defaults to one minute", func(t *testing.T) {
		r, err := NewRegistry(map[string]Limits{"m": {CallsPerWindow: 1}})
		require.NoError(t, err)

		l, _ := r.Limits("m")
		assert.Equal(t, DefaultWindow, l.Window)
	})

	t.Run("invalid limits", func(t *testing.T) {
		_, err := NewRegistry(map[string]Limits{"m": {CallsPerWindow: 0}})
		assert.ErrorIs(t, err, ErrInvalidLimits)
	})
}

func TestNew_RequiresRegistry(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrRegistryRequired)
}

func TestAcquire_UnknownModel(t *testing.T) {
	g, err := NewDefault()
	require.NoError(t, err)

	_, err = g.Acquire(context.Background(), "claude-unknown", 10)

	var unknown *UnknownModelError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "claude-unknown", unknown.Model)
}

func newTestGateway(t *testing.T, limits Limits) *Gateway {
	t.Helper()
	r, err := NewRegistry(map[string]Limits{"m": limits})
	require.NoError(t, err)
	g, err := New(r)
	require.NoError(t, err)
	return g
}

func TestAcquire_CallThrottle(t *testing.T) {
	g := newTestGateway(t, Limits{CallsPerWindow: 2, Window: 100 * time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		p, err := g.Acquire(ctx, "m", 0)
		require.NoError(t, err)
		p.Release(nil)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, int64(3), g.Stats()["m"].Admitted)
}

func TestAcquire_CancelReleasesReservation(t *testing.T) {
	g := newTestGateway(t, Limits{CallsPerWindow: 1, Window: time.Hour})

	_, err := g.Acquire(context.Background(), "m", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Acquire(ctx, "m", 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	stats := g.Stats()["m"]
	assert.Equal(t, int64(1), stats.Admitted)
	assert.Equal(t, int64(1), stats.Canceled)
	assert.Equal(t, 1, stats.InWindow)
	assert.Len(t, g.registry.models["m"].calls.slots, 1)
}

func TestAcquire_FIFO(t *testing.T) {
	g := newTestGateway(t, Limits{CallsPerWindow: 1, Window: 40 * time.Millisecond})
	ctx := context.Background()

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := g.Acquire(ctx, "m", 0)
			if err != nil {
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			p.Release(nil)
		}(i)
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestAcquire_TokenBudget(t *testing.T) {
	g := newTestGateway(t, Limits{CallsPerWindow: 100, TokensPerWindow: 100, Window: time.Second})

	p, err := g.Acquire(context.Background(), "m", 1000)
	require.NoError(t, err, "estimates above the budget are clamped")
	p.Release(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = g.Acquire(ctx, "m", 50)
	assert.Error(t, err)
	assert.Equal(t, int64(1), g.Stats()["m"].Canceled)
}

func TestDo(t *testing.T) {
	g := newTestGateway(t, Limits{CallsPerWindow: 10})
	boom := errors.New("boom")

	calls := 0
	err := g.Do(context.Background(), "m", 5, func(ctx context.Context) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int64(1), g.Stats()["m"].Admitted)
}
