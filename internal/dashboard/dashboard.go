// Package dashboard renders the public catalog page.
package dashboard

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/IshaanNene/catalogscraper/internal/catalog"
	"github.com/IshaanNene/catalogscraper/internal/types"
)

// previewLength is the number of description runes shown on a card.
const previewLength = 150

// CatalogSource loads the current catalog.
type CatalogSource interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// StatsProvider exposes run counters. It may be nil.
type StatsProvider interface {
	Snapshot() map[string]int64
}

// Dashboard serves the visible part of the catalog as HTML.
type Dashboard struct {
	source   CatalogSource
	provider StatsProvider
	tmpl     *template.Template
	logger   *slog.Logger
}

// New creates a dashboard handler.
func New(source CatalogSource, provider StatsProvider, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		source:   source,
		provider: provider,
		tmpl:     template.Must(template.New("catalog").Parse(catalogHTML)),
		logger:   logger.With("component", "dashboard"),
	}
}

type cardView struct {
	ID          string
	Article     string
	Name        string
	Preview     string
	Consumption string
	URL         string
}

type categoryView struct {
	ID       string
	Name     string
	Products []cardView
}

type pageView struct {
	Categories []categoryView
	Total      int
	Stats      map[string]int64
}

func view(c *catalog.Catalog) pageView {
	visible := c.Visible()
	page := pageView{Categories: make([]categoryView, 0, len(visible.Categories))}
	for _, cat := range visible.Categories {
		cv := categoryView{ID: cat.ID, Name: cat.Name}
		for _, p := range cat.Products {
			article, _, _ := p.Article()
			cv.Products = append(cv.Products, cardView{
				ID:          p.ID,
				Article:     article,
				Name:        p.Name,
				Preview:     preview(p.Description),
				Consumption: p.Consumption,
				URL:         p.URL,
			})
		}
		page.Total += len(cv.Products)
		page.Categories = append(page.Categories, cv)
	}
	return page
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLength {
		return s
	}
	return string(r[:previewLength]) + "..."
}

// ServeHTTP implements http.Handler.
func (d *Dashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := d.source.Load(r.Context())
	if err != nil {
		if errors.Is(err, types.ErrCatalogNotFound) {
			http.Error(w, "catalog not found, run discover first", http.StatusNotFound)
			return
		}
		d.logger.Error("catalog load failed", "error", err)
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}

	page := view(c)
	if d.provider != nil {
		page.Stats = d.provider.Snapshot()
	}

	var buf bytes.Buffer
	if err := d.tmpl.Execute(&buf, page); err != nil {
		d.logger.Error("render failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
