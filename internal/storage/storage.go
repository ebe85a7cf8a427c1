// Package storage persists the catalog document.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/catalogscraper/internal/catalog"
	"github.com/IshaanNene/catalogscraper/internal/config"
	"github.com/IshaanNene/catalogscraper/internal/types"
)

// Store is the interface for all catalog backends. Save replaces the
// previously stored catalog as a whole.
type Store interface {
	// Load returns the stored catalog or an error wrapping
	// types.ErrCatalogNotFound when nothing has been saved yet.
	Load(ctx context.Context) (*catalog.Catalog, error)

	// Save overwrites the stored catalog.
	Save(ctx context.Context, c *catalog.Catalog) error

	// Close releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New opens the backends selected by cfg.Storage.Type.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.Storage.Type {
	case "json", "":
		return NewJSONStore(cfg.Storage.OutputPath, logger), nil
	case "mongodb":
		return NewMongoStore(ctx, &cfg.Storage.Mongo, logger)
	case "both":
		mongo, err := NewMongoStore(ctx, &cfg.Storage.Mongo, logger)
		if err != nil {
			return nil, err
		}
		return NewMultiStore([]Store{NewJSONStore(cfg.Storage.OutputPath, logger), mongo}, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

// --- Multi-Store Fan-Out ---

// MultiStore saves to several backends and loads from the first one that
// has a catalog.
type MultiStore struct {
	backends []Store
	logger   *slog.Logger
}

// NewMultiStore creates a store that fans out to backends in order.
func NewMultiStore(backends []Store, logger *slog.Logger) *MultiStore {
	return &MultiStore{
		backends: backends,
		logger:   logger.With("component", "multi_store"),
	}
}

func (s *MultiStore) Name() string { return "multi" }

func (s *MultiStore) Load(ctx context.Context) (*catalog.Catalog, error) {
	var errs []error
	for _, backend := range s.backends {
		c, err := backend.Load(ctx)
		if err == nil {
			return c, nil
		}
		s.logger.Debug("backend load failed", "backend", backend.Name(), "error", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, &types.StorageError{Backend: s.Name(), Err: types.ErrCatalogNotFound}
	}
	return nil, errors.Join(errs...)
}

func (s *MultiStore) Save(ctx context.Context, c *catalog.Catalog) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Save(ctx, c); err != nil {
			s.logger.Error("backend save failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiStore) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
