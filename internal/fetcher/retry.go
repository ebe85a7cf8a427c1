package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/catalogscraper/internal/types"
)

// Retrying retries retryable fetch failures with a fixed delay.
type Retrying struct {
	next       Fetcher
	maxRetries int
	delay      time.Duration
	logger     *slog.Logger
}

// NewRetrying wraps next so that a retryable failure is attempted again up
// to maxRetries more times, waiting delay between attempts. A longer
// Retry-After from the server takes precedence over delay.
func NewRetrying(next Fetcher, maxRetries int, delay time.Duration, logger *slog.Logger) *Retrying {
	return &Retrying{
		next:       next,
		maxRetries: max(maxRetries, 0),
		delay:      delay,
		logger:     logger.With("component", "retry"),
	}
}

// Fetch implements Fetcher.
func (r *Retrying) Fetch(ctx context.Context, req *types.Request) (*types.Page, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			wait := r.delay
			var fe *types.FetchError
			if errors.As(lastErr, &fe) && fe.RetryAfter > wait {
				wait = fe.RetryAfter
			}
			r.logger.Warn("retrying fetch",
				"url", req.URLString(),
				"attempt", attempt+1,
				"of", r.maxRetries+1,
				"wait", wait,
				"error", lastErr,
			)
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		page, err := r.next.Fetch(ctx, req)
		if err == nil {
			return page, nil
		}
		if !types.IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", types.ErrMaxRetries, r.maxRetries+1, lastErr)
}

// Close implements Fetcher.
func (r *Retrying) Close() error { return r.next.Close() }

// Type implements Fetcher.
func (r *Retrying) Type() string { return r.next.Type() }

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
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
