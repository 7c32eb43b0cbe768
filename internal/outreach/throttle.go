package outreach

import (
	"context"
	"time"
)

// Throttle is a next-allowed-time gate enforcing a minimum interval
// between sends. The clock and sleep function are injectable so the
// delay policy is testable without real waits.
type Throttle struct {
	delay time.Duration
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	next  time.Time
}

// NewThrottle creates a gate with the given minimum interval.
func NewThrottle(delay time.Duration) *Throttle {
	return &Throttle{
		delay: delay,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// NewThrottleWithClock creates a gate with an injected clock and sleeper,
// for tests.
func NewThrottleWithClock(delay time.Duration, now func() time.Time, sleep func(context.Context, time.Duration) error) *Throttle {
	return &Throttle{delay: delay, now: now, sleep: sleep}
}

// Wait blocks until the next send is allowed, then reserves the slot.
// The first call never waits.
func (t *Throttle) Wait(ctx context.Context) error {
	now := t.now()
	if wait := t.next.Sub(now); wait > 0 {
		if err := t.sleep(ctx, wait); err != nil {
			return err
		}
		now = t.now()
	}
	t.next = now.Add(t.delay)
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
