package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters for a scrape run.
type Metrics struct {
	// Fetch metrics
	PagesFetched    atomic.Int64
	PagesFailed     atomic.Int64
	BytesDownloaded atomic.Int64

	// Catalog metrics
	CategoriesScraped atomic.Int64
	CategoriesFailed  atomic.Int64
	ProductsBuilt     atomic.Int64
	ProductsRejected  atomic.Int64
	ProductsDuplicate atomic.Int64
	ProductsDropped   atomic.Int64
	ProductsEnriched  atomic.Int64
	DetailsFailed     atomic.Int64

	// Storage and API metrics
	CatalogsSaved atomic.Int64
	APIRequests   atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

type sample struct {
	name  string
	help  string
	value int64
}

func (m *Metrics) samples() []sample {
	return []sample{
		{"catalogscraper_pages_fetched_total", "Pages fetched successfully", m.PagesFetched.Load()},
		{"catalogscraper_pages_failed_total", "Pages that could not be fetched", m.PagesFailed.Load()},
		{"catalogscraper_bytes_downloaded_total", "Total bytes downloaded", m.BytesDownloaded.Load()},
		{"catalogscraper_categories_scraped_total", "Categories processed", m.CategoriesScraped.Load()},
		{"catalogscraper_categories_failed_total", "Categories whose page failed", m.CategoriesFailed.Load()},
		{"catalogscraper_products_built_total", "Products appended to the catalog", m.ProductsBuilt.Load()},
		{"catalogscraper_products_rejected_total", "Cards rejected by the record builder", m.ProductsRejected.Load()},
		{"catalogscraper_products_duplicate_total", "Products skipped as duplicate URLs", m.ProductsDuplicate.Load()},
		{"catalogscraper_products_dropped_total", "Products dropped by the pipeline", m.ProductsDropped.Load()},
		{"catalogscraper_products_enriched_total", "Products merged with their detail page", m.ProductsEnriched.Load()},
		{"catalogscraper_details_failed_total", "Detail pages that failed", m.DetailsFailed.Load()},
		{"catalogscraper_catalogs_saved_total", "Catalog saves", m.CatalogsSaved.Load()},
		{"catalogscraper_api_requests_total", "API requests served", m.APIRequests.Load()},
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	for _, metric := range m.samples() {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer serves metrics on port until ctx is canceled.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv
}

// Snapshot returns all counters keyed by their short name.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"pages_fetched":      m.PagesFetched.Load(),
		"pages_failed":       m.PagesFailed.Load(),
		"bytes_downloaded":   m.BytesDownloaded.Load(),
		"categories_scraped": m.CategoriesScraped.Load(),
		"categories_failed":  m.CategoriesFailed.Load(),
		"products_built":     m.ProductsBuilt.Load(),
		"products_rejected":  m.ProductsRejected.Load(),
		"products_duplicate": m.ProductsDuplicate.Load(),
		"products_dropped":   m.ProductsDropped.Load(),
		"products_enriched":  m.ProductsEnriched.Load(),
		"details_failed":     m.DetailsFailed.Load(),
		"catalogs_saved":     m.CatalogsSaved.Load(),
		"api_requests":       m.APIRequests.Load(),
	}
}
