package gateway

import (
	"fmt"
	"maps"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultWindow is the window used when Limits leaves it unset.
const DefaultWindow = time.Minute

// Limits are the admission ceilings of one model.
type Limits struct {
	// CallsPerWindow caps the number of calls started in any sliding window.
	CallsPerWindow int
	// TokensPerWindow caps estimated tokens per window. Zero disables the budget.
	TokensPerWindow int
	// Window is the sliding window length. Zero means DefaultWindow.
	Window time.Duration
}

// DefaultLimits returns the ceilings for the generation models used by enrichment.
func DefaultLimits() map[string]Limits {
	def := Limits{CallsPerWindow: 100, TokensPerWindow: 30000, Window: DefaultWindow}
	return map[string]Limits{
		"gpt-4o":      def,
		"gpt-4o-mini": def,
		"gpt-4":       def,
	}
}

type modelLimiter struct {
	limits   Limits
	calls    *slidingWindow
	tokens   *rate.Limiter
	admitted atomic.Int64
	canceled atomic.Int64
}

// Registry holds one limiter pair per model. Its set of models is fixed at
// construction; only the limiters' internal counters change afterwards.
type Registry struct {
	models map[string]*modelLimiter
}

// NewRegistry builds a registry from per-model limits.
func NewRegistry(limits map[string]Limits) (*Registry, error) {
	r := &Registry{models: make(map[string]*modelLimiter, len(limits))}
	for model, l := range limits {
		if l.Window == 0 {
			l.Window = DefaultWindow
		}
		if l.CallsPerWindow < 1 || l.Window < 0 || l.TokensPerWindow < 0 {
			return nil, fmt.Errorf("%w for %q: %+v", ErrInvalidLimits, model, l)
		}
		m := &modelLimiter{
			limits: l,
			calls:  newSlidingWindow(l.CallsPerWindow, l.Window),
		}
		if l.TokensPerWindow > 0 {
			perSecond := float64(l.TokensPerWindow) / l.Window.Seconds()
			m.tokens = rate.NewLimiter(rate.Limit(perSecond), l.TokensPerWindow)
		}
		r.models[model] = m
	}
	return r, nil
}

// Models returns the configured model names in sorted order.
func (r *Registry) Models() []string {
	return slices.Sorted(maps.Keys(r.models))
}

// Limits returns the limits of a model.
func (r *Registry) Limits(model string) (Limits, bool) {
	m, ok := r.models[model]
	if !ok {
		return Limits{}, false
	}
	return m.limits, true
}

func (r *Registry) limiter(model string) (*modelLimiter, error) {
	m, ok := r.models[model]
	if !ok {
		return nil, &UnknownModelError{Model: model}
	}
	return m, nil
}
