// Package engine assembles the catalog: it resolves categories, walks their
// pages and turns product cards into catalog records.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/catalogscraper/internal/catalog"
	"github.com/IshaanNene/catalogscraper/internal/config"
	"github.com/IshaanNene/catalogscraper/internal/observability"
	"github.com/IshaanNene/catalogscraper/internal/parser"
	"github.com/IshaanNene/catalogscraper/internal/slug"
	"github.com/IshaanNene/catalogscraper/internal/types"
)

// Fetcher retrieves pages.
type Fetcher interface {
	Fetch(ctx context.Context, req *types.Request) (*types.Page, error)
}

// Pipeline post-processes products. A nil product means it was dropped.
type Pipeline interface {
	Process(p *catalog.Product) (*catalog.Product, error)
}

// Engine runs discovery and enrichment one page at a time.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	fetcher  Fetcher
	parser   *parser.Parser
	pipeline Pipeline
	metrics  *observability.Metrics
	started  time.Time
}

// New creates an Engine. metrics may be nil.
func New(cfg *config.Config, f Fetcher, p *parser.Parser, pl Pipeline, metrics *observability.Metrics, logger *slog.Logger) *Engine {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	return &Engine{
		cfg:      cfg,
		logger:   logger.With("component", "engine"),
		fetcher:  f,
		parser:   p,
		pipeline: pl,
		metrics:  metrics,
	}
}

// Discover builds a fresh catalog. Category pages that fail still produce an
// empty category. On cancellation the partial catalog is returned together
// with the context error.
func (e *Engine) Discover(ctx context.Context) (*catalog.Catalog, error) {
	e.started = time.Now()

	descs := e.resolveCategories(ctx)
	e.logger.Info("discovery starting", "categories", len(descs), "fetch_details", e.cfg.Engine.FetchDetails)

	out := &catalog.Catalog{Categories: make([]*catalog.Category, 0, len(descs))}
	for i, d := range descs {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("discovery interrupted", "done", i, "total", len(descs))
			return out, err
		}
		cat := e.scrapeCategory(ctx, d)
		out.Categories = append(out.Categories, cat)
		e.logger.Info("category done",
			"id", cat.ID,
			"products", len(cat.Products),
			"progress", fmt.Sprintf("%d/%d", i+1, len(descs)),
		)
	}

	e.logger.Info("discovery complete", "categories", len(out.Categories), "products", out.ProductCount(), "elapsed", time.Since(e.started))
	return out, ctx.Err()
}

// Enrich fetches the detail page of every product that has a URL and merges
// the extracted fields into it. Failed pages leave the product unchanged.
func (e *Engine) Enrich(ctx context.Context, c *catalog.Catalog) error {
	e.started = time.Now()
	total := c.ProductCount()
	done := 0

	for _, cat := range c.Categories {
		logger := e.logger.With("category", cat.ID)
		for i, p := range cat.Products {
			if err := ctx.Err(); err != nil {
				e.logger.Warn("enrichment interrupted", "done", done, "total", total)
				return err
			}
			done++
			if p.URL == "" {
				continue
			}
			if !e.enrichProduct(ctx, p, logger) {
				continue
			}
			if out, err := e.pipeline.Process(p); err != nil {
				logger.Warn("pipeline failed after enrichment", "id", p.ID, "error", err)
			} else if out != nil {
				cat.Products[i] = out
			}
			logger.Debug("product enriched", "id", p.ID, "progress", fmt.Sprintf("%d/%d", done, total))
		}
	}

	e.logger.Info("enrichment complete", "products", total, "enriched", e.metrics.ProductsEnriched.Load(), "elapsed", time.Since(e.started))
	return nil
}

// Summary returns run counters for reporting.
func (e *Engine) Summary() map[string]any {
	out := make(map[string]any)
	for k, v := range e.metrics.Snapshot() {
		out[k] = v
	}
	if !e.started.IsZero() {
		out["elapsed"] = time.Since(e.started).Round(time.Millisecond).String()
	}
	return out
}

// resolveCategories reads category links from the home page and falls back
// to the configured list when the page fails or names none of them.
func (e *Engine) resolveCategories(ctx context.Context) []config.CategoryDescriptor {
	page, err := e.fetchPage(ctx, e.cfg.Site.BaseURL, types.TagHome)
	if err != nil {
		e.logger.Warn("home page unavailable, using configured categories", "error", err)
		return e.staticCategories()
	}
	doc, err := page.Document()
	if err != nil {
		e.logger.Warn("home page unparsable, using configured categories", "error", err)
		return e.staticCategories()
	}

	found := e.parser.Builder.CategoryLinks(doc.Selection, e.cfg.Site.Categories)
	if len(found) == 0 {
		e.logger.Info("no category links on home page, using configured categories")
		return e.staticCategories()
	}
	return found
}

func (e *Engine) staticCategories() []config.CategoryDescriptor {
	out := make([]config.CategoryDescriptor, 0, len(e.cfg.Site.Categories))
	for _, c := range e.cfg.Site.Categories {
		if c.ID == "" {
			c.ID = slug.Make(c.Name)
		}
		c.Path = e.parser.Builder.Resolve(c.Path)
		out = append(out, c)
	}
	return out
}

func (e *Engine) scrapeCategory(ctx context.Context, d config.CategoryDescriptor) *catalog.Category {
	cat := &catalog.Category{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		URL:         d.Path,
		Products:    []*catalog.Product{},
	}
	logger := e.logger.With("category", cat.ID)

	page, err := e.fetchPage(ctx, cat.URL, types.TagCategory)
	if err != nil {
		e.metrics.CategoriesFailed.Add(1)
		logger.Warn("category page failed", "url", cat.URL, "error", err)
		return cat
	}
	doc, err := page.Document()
	if err != nil {
		e.metrics.CategoriesFailed.Add(1)
		logger.Warn("category page unparsable", "url", cat.URL, "error", err)
		return cat
	}
	e.metrics.CategoriesScraped.Add(1)

	limit := e.cfg.Limits.MaxProductsPerCategory
	full := func() bool { return limit > 0 && len(cat.Products) >= limit }
	dedup := NewDeduplicator(limit)

	cards := e.parser.Cascade.Find(doc.Selection, parser.TargetCard)
	switch {
	case len(cards) > 0:
		style := parser.IDStyle(e.cfg.Engine.IDStyle)
		logger.Debug("product cards found", "count", len(cards))
		for _, card := range cards {
			if full() || ctx.Err() != nil {
				break
			}
			p, err := e.parser.Builder.Build(card, cat.ID, len(cat.Products), style)
			if err != nil {
				e.metrics.ProductsRejected.Add(1)
				logger.Debug("card rejected", "error", err)
				continue
			}
			e.accept(ctx, cat, p, dedup, logger)
		}

	case e.cfg.Engine.LinkFallback:
		links := e.parser.Builder.ProductLinks(doc.Selection, cat.URL)
		logger.Info("no product cards, using product links", "links", len(links))
		for _, c := range links {
			if full() || ctx.Err() != nil {
				break
			}
			p := e.parser.Builder.BuildFromLink(c, cat.ID, len(cat.Products), parser.IDSequence)
			e.accept(ctx, cat, p, dedup, logger)
		}

	default:
		logger.Info("no product cards found")
	}
	return cat
}

// accept deduplicates, optionally enriches and post-processes p, then
// appends it to cat.
func (e *Engine) accept(ctx context.Context, cat *catalog.Category, p *catalog.Product, dedup *Deduplicator, logger *slog.Logger) {
	if p.URL != "" && !dedup.Add(p.URL) {
		e.metrics.ProductsDuplicate.Add(1)
		logger.Debug("duplicate product url", "url", p.URL)
		return
	}

	if e.cfg.Engine.FetchDetails && p.URL != "" {
		e.enrichProduct(ctx, p, logger)
	}

	out, err := e.pipeline.Process(p)
	if err != nil {
		e.metrics.ProductsDropped.Add(1)
		logger.Warn("pipeline failed", "id", p.ID, "error", err)
		return
	}
	if out == nil {
		e.metrics.ProductsDropped.Add(1)
		return
	}

	cat.Products = append(cat.Products, out)
	e.metrics.ProductsBuilt.Add(1)
	logger.Debug("product added", "id", out.ID, "name", out.Name)
}

func (e *Engine) enrichProduct(ctx context.Context, p *catalog.Product, logger *slog.Logger) bool {
	page, err := e.fetchPage(ctx, p.URL, types.TagDetail)
	if err != nil {
		e.metrics.DetailsFailed.Add(1)
		logger.Warn("detail page failed", "id", p.ID, "url", p.URL, "error", err)
		return false
	}
	detail, err := e.parser.Detail.Extract(page)
	if err != nil {
		e.metrics.DetailsFailed.Add(1)
		logger.Warn("detail extraction failed", "id", p.ID, "url", p.URL, "error", err)
		return false
	}
	p.Enrich(detail)
	e.metrics.ProductsEnriched.Add(1)
	return true
}

func (e *Engine) fetchPage(ctx context.Context, rawURL, tag string) (*types.Page, error) {
	req, err := types.NewRequest(rawURL, tag)
	if err != nil {
		return nil, err
	}
	page, err := e.fetcher.Fetch(ctx, req)
	if err != nil {
		e.metrics.PagesFailed.Add(1)
		return nil, err
	}
	if len(page.Body) == 0 {
		e.metrics.PagesFailed.Add(1)
		return nil, fmt.Errorf("%s: %w", rawURL, types.ErrEmptyResponse)
	}
	e.metrics.PagesFetched.Add(1)
	e.metrics.BytesDownloaded.Add(int64(len(page.Body)))
	return page, nil
}
