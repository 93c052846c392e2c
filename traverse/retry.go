package traverse

import (
	"context"
	"log/slog"
	"time"

	"github.com/pevans/progcat"
)

// backoff returns the delay before retry number n (1-based): initial,
// doubling each time, capped at ceiling.
func backoff(n int, initial, ceiling time.Duration) time.Duration {
	d := initial
	for i := 1; i < n && d < ceiling; i++ {
		d *= 2
	}
	if d > ceiling {
		d = ceiling
	}
	return d
}

// fetchWithRetry fetches rawURL through the throttle, retrying transient
// failures. It returns the body or the last error along with the number
// of attempts made.
func (e *Engine) fetchWithRetry(ctx context.Context, th *throttle, rawURL string) ([]byte, int, error) {
	var lastErr error

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := backoff(attempt-1, e.cfg.InitialBackoff, e.cfg.MaxBackoff)
			slog.Debug("Retrying fetch", "url", rawURL, "attempt", attempt, "delay", delay, "error", lastErr)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, attempt - 1, ctx.Err()
			case <-timer.C:
			}
		}

		body, err := e.fetchOnce(ctx, th, rawURL)
		if err == nil {
			return body, attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, attempt, ctx.Err()
		}
		if progcat.IsPermanent(err) {
			return nil, attempt, err
		}
	}

	return nil, e.cfg.MaxAttempts, lastErr
}

func (e *Engine) fetchOnce(ctx context.Context, th *throttle, rawURL string) ([]byte, error) {
	release, err := th.acquire(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer release()

	return e.fetcher.Fetch(ctx, rawURL)
}
