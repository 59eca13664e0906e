package predict

import (
	"context"
	"time"
)

// RetryPolicy bounds how a fetch is retried. Zero MaxAttempts means a single
// attempt with no retries.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs fn up to MaxAttempts times, sleeping Backoff between attempts.
// The context cancels both the wait and further attempts.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= p.attempts(); attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == p.attempts() {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff):
		}
	}
	return err
}
