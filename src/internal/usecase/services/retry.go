package services

import (
	"context"
	"math/rand/v2"
	"time"
)

// retryDelay grows base exponentially per attempt and picks a point in the
// upper half so concurrent losers spread out.
func retryDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt > 10 {
		attempt = 10
	}
	delay := base << attempt
	half := delay / 2
	return half + time.Duration(rand.Int64N(int64(half)+1))
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
