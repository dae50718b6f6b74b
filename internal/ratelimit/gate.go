package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Gate is a counted-permit concurrency limiter. A Gate must be created once
// per process per protected dependency and never replaced while callers are
// in flight; the permit count is the only state shared across invocations.
type Gate struct {
	permits chan struct{}
}

// NewGate returns a gate with the given number of permits.
func NewGate(permits int) (*Gate, error) {
	if permits <= 0 {
		return nil, errors.New("ratelimit: permit count must be positive")
	}
	return &Gate{permits: make(chan struct{}, permits)}, nil
}

// Acquire blocks until a permit is free or the context ends. Callers must
// Release exactly once per successful Acquire.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.permits <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a permit. Releasing without a matching Acquire is a
// programming error and panics.
func (g *Gate) Release() {
	select {
	case <-g.permits:
	default:
		panic("ratelimit: release without acquire")
	}
}

// Do runs fn while holding a permit, releasing it on every exit path.
func (g *Gate) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return fn(ctx)
}

// InUse reports how many permits are currently held.
func (g *Gate) InUse() int {
	return len(g.permits)
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
