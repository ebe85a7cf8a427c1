package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/catalogscraper/internal/catalog"
	"github.com/IshaanNene/catalogscraper/internal/types"
)

// JSONStore keeps the catalog in a single JSON file. Saves go through a
// temporary file in the same directory and a rename, so readers never see a
// partially written document.
type JSONStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewJSONStore creates a JSON file store at path.
func NewJSONStore(path string, logger *slog.Logger) *JSONStore {
	return &JSONStore{
		path:   path,
		logger: logger.With("component", "json_store"),
	}
}

func (s *JSONStore) Name() string { return "json" }

// Path returns the output file path.
func (s *JSONStore) Path() string { return s.path }

func (s *JSONStore) Load(ctx context.Context) (*catalog.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("%s: %w", s.path, types.ErrCatalogNotFound)}
		}
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	defer f.Close()

	c, err := catalog.Decode(f)
	if err != nil {
		return nil, &types.StorageError{Backend: s.Name(), Err: err}
	}
	s.logger.Debug("catalog loaded", "path", s.path, "categories", len(c.Categories))
	return c, nil
}

func (s *JSONStore) Save(ctx context.Context, c *catalog.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(c); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	s.logger.Info("JSON written", "path", s.path, "categories", len(c.Categories), "products", c.ProductCount())
	return nil
}

func (s *JSONStore) write(c *catalog.Catalog) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := c.Encode(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }
