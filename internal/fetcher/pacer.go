package fetcher

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/IshaanNene/catalogscraper/internal/types"
)

// Paced spaces fetches at least interval apart.
type Paced struct {
	next    Fetcher
	limiter *rate.Limiter
}

// NewPaced wraps next with a fixed-interval limiter. A non-positive interval
// disables pacing.
func NewPaced(next Fetcher, interval time.Duration) *Paced {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Paced{next: next, limiter: rate.NewLimiter(limit, 1)}
}

// Fetch implements Fetcher.
func (p *Paced) Fetch(ctx context.Context, req *types.Request) (*types.Page, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.next.Fetch(ctx, req)
}

// Close implements Fetcher.
func (p *Paced) Close() error { return p.next.Close() }

// Type implements Fetcher.
func (p *Paced) Type() string { return p.next.Type() }
