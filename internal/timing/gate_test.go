package timing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to, so tests measure the gate's
// arithmetic instead of the scheduler.
type fakeClock struct {
	current time.Time
	slept   []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.UnixMilli(1700000000000)}
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.current = c.current.Add(d)
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func TestRunHoldsFastFailure(t *testing.T) {
	clock := newFakeClock()
	gate := NewGate(time.Second, WithClock(clock.now), WithSleep(clock.sleep))

	// A branch that fails after 5ms, e.g. duplicate username
	_, err := Run(gate, context.Background(), func(ctx context.Context) (string, error) {
		clock.advance(5 * time.Millisecond)
		return "", errors.New("already exists")
	})

	require.Error(t, err)
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 995*time.Millisecond, clock.slept[0])
}

func TestRunHoldsFastSuccess(t *testing.T) {
	clock := newFakeClock()
	gate := NewGate(time.Second, WithClock(clock.now), WithSleep(clock.sleep))

	result, err := Run(gate, context.Background(), func(ctx context.Context) (string, error) {
		clock.advance(20 * time.Millisecond)
		return "created", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "created", result)
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 980*time.Millisecond, clock.slept[0])
}

func TestRunDoesNotDelaySlowOperations(t *testing.T) {
	clock := newFakeClock()
	gate := NewGate(time.Second, WithClock(clock.now), WithSleep(clock.sleep))

	_, err := Run(gate, context.Background(), func(ctx context.Context) (int, error) {
		clock.advance(1500 * time.Millisecond)
		return 42, nil
	})

	require.NoError(t, err)
	assert.Empty(t, clock.slept)
}

func TestRunPassesResultThroughUnchanged(t *testing.T) {
	clock := newFakeClock()
	gate := NewGate(time.Second, WithClock(clock.now), WithSleep(clock.sleep))

	wantErr := errors.New("upstream validation failed")
	result, err := Run(gate, context.Background(), func(ctx context.Context) (string, error) {
		return "partial", wantErr
	})

	assert.Equal(t, "partial", result)
	assert.Equal(t, wantErr, err)
}

func TestRunHoldsCancelledContext(t *testing.T) {
	clock := newFakeClock()
	gate := NewGate(time.Second, WithClock(clock.now), WithSleep(clock.sleep))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(gate, ctx, func(ctx context.Context) (string, error) {
		clock.advance(2 * time.Millisecond)
		return "", ctx.Err()
	})

	// The timeout still pays the full floor before surfacing
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 998*time.Millisecond, clock.slept[0])
}

func TestBranchesIndistinguishableByWallClock(t *testing.T) {
	// Real clock, small floor: the fast-fail and fast-success branches must
	// both take at least the floor and land within a small tolerance of
	// each other.
	gate := NewGate(50 * time.Millisecond)

	measure := func(op func(context.Context) (string, error)) time.Duration {
		start := time.Now()
		_, _ = Run(gate, context.Background(), op)
		return time.Since(start)
	}

	failDur := measure(func(ctx context.Context) (string, error) {
		return "", errors.New("already exists")
	})
	okDur := measure(func(ctx context.Context) (string, error) {
		return "ok", nil
	})

	assert.GreaterOrEqual(t, failDur, 50*time.Millisecond)
	assert.GreaterOrEqual(t, okDur, 50*time.Millisecond)

	diff := failDur - okDur
	if diff < 0 {
		diff = -diff
	}
	assert.Less(t, diff, 20*time.Millisecond)
}

func TestNewGateDefaults(t *testing.T) {
	assert.Equal(t, DefaultMinDelay, NewGate(0).MinDelay())
	assert.Equal(t, 2*time.Second, NewGate(2*time.Second).MinDelay())
}
