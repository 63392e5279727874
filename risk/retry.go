package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/quantrio/traderd/broker"
)

// retryDelay is the pause between attempts. Overridden to zero in tests.
var retryDelay = 100 * time.Millisecond

// Retry runs fn, retrying only retriable failures up to maxRetry additional
// times (1 + maxRetry attempts total). Non-retriable errors surface
// immediately; exhausting the budget surfaces the last retriable error.
func Retry(ctx context.Context, maxRetry int, fn func(ctx context.Context) error) error {
	var last error
	for attempt := 0; attempt <= maxRetry; attempt++ {
		if attempt > 0 {
			if err := wait(ctx, retryDelay); err != nil {
				return err
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !broker.IsRetriable(err) {
			return err
		}
		last = err
	}
	return fmt.Errorf("retries exhausted after %d attempts: %w", maxRetry+1, last)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
