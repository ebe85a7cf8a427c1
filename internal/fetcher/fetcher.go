package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/catalogscraper/internal/config"
	"github.com/IshaanNene/catalogscraper/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the page at the request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Page, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New builds the configured fetcher, paced and retried:
// Retrying(Paced(http|browser)). Every attempt waits for the pacer.
func New(cfg *config.Config, logger *slog.Logger) (Fetcher, error) {
	var base Fetcher
	switch cfg.Fetcher.Type {
	case "browser":
		r, err := NewRodRenderer(&cfg.Browser, cfg.Engine.RequestTimeout, logger)
		if err != nil {
			return nil, fmt.Errorf("start browser: %w", err)
		}
		base = NewBrowserFetcher(r, cfg, logger)
	default:
		h, err := NewHTTPFetcher(cfg, logger)
		if err != nil {
			return nil, err
		}
		base = h
	}

	paced := NewPaced(base, cfg.Engine.PolitenessDelay)
	return NewRetrying(paced, cfg.Engine.MaxRetries, cfg.Engine.RetryDelay, logger), nil
}
