package concurrency

import (
	"context"
	"time"
)

// Sleep waits for d or returns ctx.Err() immediately if ctx is cancelled
// first. Used for retry backoff so a cancellation aborts a pending sleep
// rather than running it to completion.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return nil
	}

	timer := time.NewTimer(d)
	defer func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
