// Package timing provides a minimum-latency gate around account-mutation
// operations. Enforcing a uniform response-time floor across every branch
// keeps an outside observer from telling "username taken" apart from
// "created" or "upstream down" by latency alone.
package timing

import (
	"context"
	"time"
)

// DefaultMinDelay is the response-time floor applied when none is configured
const DefaultMinDelay = 1000 * time.Millisecond

// Gate wraps fallible multi-branch operations with a minimum elapsed-time
// guarantee. The wrapped operation's branching and result are untouched;
// the gate only delays delivery. A Gate is safe for concurrent use and the
// wait does not hold any lock.
type Gate struct {
	minDelay time.Duration
	now      func() time.Time
	sleep    func(time.Duration)
}

// Option configures a Gate
type Option func(*Gate)

// WithClock injects a clock, used by tests
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// WithSleep injects the suspend function, used by tests
func WithSleep(sleep func(time.Duration)) Option {
	return func(g *Gate) {
		g.sleep = sleep
	}
}

// NewGate creates a gate with the given floor. A non-positive minDelay
// falls back to DefaultMinDelay.
func NewGate(minDelay time.Duration, opts ...Option) *Gate {
	g := &Gate{
		minDelay: minDelay,
		now:      time.Now,
		sleep:    time.Sleep,
	}
	if g.minDelay <= 0 {
		g.minDelay = DefaultMinDelay
	}

	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MinDelay returns the configured floor
func (g *Gate) MinDelay() time.Duration {
	return g.minDelay
}

// Run executes op and holds the result until at least the configured floor
// has elapsed since entry. Every exit path is covered, including context
// cancellation inside op: the floor is enforced before the error surfaces,
// so cancelled calls are indistinguishable from completed ones.
func Run[T any](g *Gate, ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	start := g.now()
	result, err := op(ctx)
	g.hold(start)
	return result, err
}

// hold suspends the caller for whatever remains of the floor
func (g *Gate) hold(start time.Time) {
	elapsed := g.now().Sub(start)
	if remaining := g.minDelay - elapsed; remaining > 0 {
		g.sleep(remaining)
	}
}
