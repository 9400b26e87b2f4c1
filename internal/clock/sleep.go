// Package clock provides cancellable waits and tick jitter.
package clock

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
)

var realClock = clockwork.NewRealClock()

// SleepWithContext waits for the duration or returns early if the context is canceled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	return SleepWithClock(ctx, realClock, d)
}

// SleepWithClock waits on clk so tests can advance a fake clock.
func SleepWithClock(ctx context.Context, clk clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := clk.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

// Jitter returns d plus a random extra delay in [0, maxJitter).
func Jitter(d, maxJitter time.Duration) time.Duration {
	if maxJitter <= 0 {
		return d
	}
	return d + rand.N(maxJitter)
}
