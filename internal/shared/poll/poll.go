// Package poll repeats a check on a fixed cadence until it succeeds or a
// wall-clock deadline passes.
package poll

import (
	"context"
	"time"
)

// Cond is evaluated on every tick. Returning true stops the loop.
type Cond func(ctx context.Context) (bool, error)

// Until evaluates cond immediately and then once per interval until it
// reports done, the deadline passes, or ctx ends.
//
// It returns (true, nil) when cond succeeded, (false, nil) when the deadline
// passed first, and (false, err) when cond failed or ctx was cancelled.
func Until(ctx context.Context, interval time.Duration, deadline time.Time, cond Cond) (bool, error) {
	for time.Now().Before(deadline) {
		done, err := cond(ctx)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}

		wait := interval
		if left := time.Until(deadline); left < wait {
			wait = left
		}
		if err := Sleep(ctx, wait); err != nil {
			return false, err
		}
	}
	return false, nil
}

// Sleep waits for d or until ctx ends
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
