package stage

import (
	"context"
	"time"

	"drillcut/internal/services"
)

// Retry runs fn up to attempts times while it returns a retryable error,
// waiting attempt*delay between tries. It returns the number of extra
// attempts spent and the last error.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) (int, error) {
	attempts = max(1, attempts)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return attempt - 1, nil
		}
		if ctx.Err() != nil || attempt == attempts || !services.Retryable(err) {
			return attempt - 1, err
		}
		if delay > 0 {
			timer := time.NewTimer(time.Duration(attempt) * delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return attempt - 1, err
			case <-timer.C:
			}
		}
	}
	return attempts - 1, err
}
