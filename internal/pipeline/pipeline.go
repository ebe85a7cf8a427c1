// Package pipeline post-processes products before they are appended to a
// category.
package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/catalogscraper/internal/catalog"
	"github.com/IshaanNene/catalogscraper/internal/config"
	"github.com/IshaanNene/catalogscraper/internal/types"
)

// Middleware processes a product and returns the (possibly modified) product.
// Return nil to drop the product.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a product. Return nil to drop it.
	Process(p *catalog.Product) (*catalog.Product, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates an empty Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default returns the standard product chain for cfg: sanitize, trim,
// require a name, cap the description and specifications.
func Default(cfg *config.Config, logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(NewHTMLSanitizeMiddleware())
	p.Use(&TrimMiddleware{})
	p.Use(&RequiredNameMiddleware{MinLength: cfg.Limits.MinNameLength})
	p.Use(&TruncateMiddleware{MaxDescription: cfg.Limits.DescriptionLength})
	p.Use(&SpecLimitMiddleware{Max: cfg.Limits.MaxSpecifications})
	return p
}

// Use adds a middleware to the end of the chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the product through all middleware in order. A nil product
// with a nil error means it was dropped.
func (p *Pipeline) Process(product *catalog.Product) (*catalog.Product, error) {
	current := product

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage:     mw.Name(),
				ProductID: current.ID,
				Err:       err,
			}
		}
		if result == nil {
			p.logger.Debug("product dropped", "stage", mw.Name(), "id", product.ID)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}
