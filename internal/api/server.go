package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/IshaanNene/catalogscraper/internal/catalog"
	"github.com/IshaanNene/catalogscraper/internal/config"
	"github.com/IshaanNene/catalogscraper/internal/dashboard"
	"github.com/IshaanNene/catalogscraper/internal/observability"
	"github.com/IshaanNene/catalogscraper/internal/types"
)

// CatalogSource loads the current catalog.
type CatalogSource interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// Server provides a read-only REST API over the stored catalog. The catalog
// is loaded per request so a concurrent discovery run is picked up without
// a restart.
type Server struct {
	mux     *http.ServeMux
	source  CatalogSource
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewServer creates a new API server. metrics may be nil.
func NewServer(source CatalogSource, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		source:  source,
		metrics: metrics,
		logger:  logger.With("component", "api_server"),
	}

	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.metrics != nil {
		s.metrics.APIRequests.Add(1)
	}
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("API server stopping")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	s.mux.HandleFunc("GET /api/categories", s.handleListCategories)
	s.mux.HandleFunc("GET /api/categories/{id}", s.handleGetCategory)
	s.mux.HandleFunc("GET /api/products/{id}", s.handleGetProduct)
	s.mux.HandleFunc("GET /api/articles/{article}", s.handleGetArticle)

	var stats dashboard.StatsProvider
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
		stats = s.metrics
	}
	s.mux.Handle("GET /{$}", dashboard.New(s.source, stats, s.logger))
}

// categorySummary is a category without its products.
type categorySummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ProductCount int    `json:"product_count"`
}

// productResponse is a product with the ID of its category.
type productResponse struct {
	*catalog.Product
	CategoryID string `json:"category_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	c, ok := s.load(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("visible") == "true" {
		c = c.Visible()
	}
	s.jsonResponse(w, http.StatusOK, c)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	c, ok := s.load(w, r)
	if !ok {
		return
	}
	out := make([]categorySummary, 0, len(c.Categories))
	for _, cat := range c.Categories {
		out = append(out, categorySummary{
			ID:           cat.ID,
			Name:         cat.Name,
			Description:  cat.Description,
			ProductCount: len(cat.Products),
		})
	}
	s.jsonResponse(w, http.StatusOK, out)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	c, ok := s.load(w, r)
	if !ok {
		return
	}
	cat := c.Category(r.PathValue("id"))
	if cat == nil {
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "category not found"})
		return
	}
	s.jsonResponse(w, http.StatusOK, cat)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	c, ok := s.load(w, r)
	if !ok {
		return
	}
	p, cat := c.Product(r.PathValue("id"))
	if p == nil {
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	s.jsonResponse(w, http.StatusOK, productResponse{Product: p, CategoryID: cat.ID})
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	c, ok := s.load(w, r)
	if !ok {
		return
	}
	p, cat := c.ProductByArticle(r.PathValue("article"))
	if p == nil {
		s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "article not found"})
		return
	}
	s.jsonResponse(w, http.StatusOK, productResponse{Product: p, CategoryID: cat.ID})
}

// load fetches the catalog, writing the error response itself on failure.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (*catalog.Catalog, bool) {
	c, err := s.source.Load(r.Context())
	if err != nil {
		if errors.Is(err, types.ErrCatalogNotFound) {
			s.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "catalog not found, run discover first"})
			return nil, false
		}
		s.logger.Error("catalog load failed", "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, map[string]string{"error": "catalog unavailable"})
		return nil, false
	}
	return c, true
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		s.logger.Debug("response write failed", "error", err)
	}
}
