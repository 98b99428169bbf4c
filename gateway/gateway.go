// Package gateway admits calls to the external text-generation service under
// per-model call-rate and token-budget ceilings.
//
// Every model has two independent controls: a sliding-window call throttle and
// an optional token budget. Acquire blocks until both admit the call. Quota is
// consumed when the permit is granted; releasing the permit only records the
// outcome. Waiting callers are served in arrival order per model.
package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Gateway hands out permits for model calls. It is safe for concurrent use.
type Gateway struct {
	registry *Registry
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger.With("component", "gateway")
		return nil
	}
}

// New creates a Gateway over a registry.
func New(registry *Registry, opts ...Option) (*Gateway, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	g := &Gateway{
		registry: registry,
		now:      time.Now,
		logger:   slog.Default().With("component", "gateway"),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// NewDefault creates a Gateway with DefaultLimits.
func NewDefault(opts ...Option) (*Gateway, error) {
	registry, err := NewRegistry(DefaultLimits())
	if err != nil {
		return nil, err
	}
	return New(registry, opts...)
}

// Registry returns the gateway's limit registry.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Permit is the admission token for one model call.
type Permit struct {
	model    string
	tokens   int
	waited   time.Duration
	granted  time.Time
	logger   *slog.Logger
	released sync.Once
}

// Model returns the model the permit was granted for.
func (p *Permit) Model() string { return p.model }

// Waited returns how long the caller queued before admission.
func (p *Permit) Waited() time.Duration { return p.waited }

// Release ends the permit. It never returns quota.
func (p *Permit) Release(err error) {
	p.released.Do(func() {
		latency := time.Since(p.granted)
		if err != nil {
			p.logger.Debug("call failed", "model", p.model, "tokens", p.tokens, "latency", latency, "err", err)
			return
		}
		p.logger.Debug("call finished", "model", p.model, "tokens", p.tokens, "latency", latency)
	})
}

// Acquire blocks until model admits one call of the given estimated token
// count. A token estimate above the model's budget is clamped to the budget.
// An unconfigured model fails immediately with *UnknownModelError.
func (g *Gateway) Acquire(ctx context.Context, model string, tokens int) (*Permit, error) {
	m, err := g.registry.limiter(model)
	if err != nil {
		return nil, err
	}

	start := g.now()
	slot := m.calls.reserve(start)
	if wait := slot.Sub(start); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.calls.release(slot)
			m.canceled.Add(1)
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		m.calls.release(slot)
		m.canceled.Add(1)
		return nil, err
	}

	if m.tokens != nil && tokens > 0 {
		n := min(tokens, m.tokens.Burst())
		if err := m.tokens.WaitN(ctx, n); err != nil {
			m.calls.release(slot)
			m.canceled.Add(1)
			return nil, err
		}
	}

	m.admitted.Add(1)
	waited := g.now().Sub(start)
	if waited > time.Second {
		g.logger.Debug("permit granted after wait", "model", model, "waited", waited)
	}
	return &Permit{
		model:   model,
		tokens:  tokens,
		waited:  waited,
		granted: g.now(),
		logger:  g.logger,
	}, nil
}

// Do runs fn under a permit and releases it with fn's result.
func (g *Gateway) Do(ctx context.Context, model string, tokens int, fn func(ctx context.Context) error) error {
	permit, err := g.Acquire(ctx, model, tokens)
	if err != nil {
		return err
	}
	err = fn(ctx)
	permit.Release(err)
	return err
}

// ModelStats are the counters of one model.
type ModelStats struct {
	Admitted int64
	Canceled int64
	// InWindow is the number of calls started in the current window.
	InWindow int
}

// Stats returns per-model counters.
func (g *Gateway) Stats() map[string]ModelStats {
	now := g.now()
	out := make(map[string]ModelStats, len(g.registry.models))
	for name, m := range g.registry.models {
		out[name] = ModelStats{
			Admitted: m.admitted.Load(),
			Canceled: m.canceled.Load(),
			InWindow: m.calls.inWindow(now),
		}
	}
	return out
}
