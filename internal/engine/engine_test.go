package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/catalogscraper/internal/catalog"
	"github.com/IshaanNene/catalogscraper/internal/config"
	"github.com/IshaanNene/catalogscraper/internal/fetcher"
	"github.com/IshaanNene/catalogscraper/internal/observability"
	"github.com/IshaanNene/catalogscraper/internal/parser"
	"github.com/IshaanNene/catalogscraper/internal/pipeline"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const homeHTML = `<html><body><nav>
<a href="/product/kraska-izvestkovaya/">Краска известковая</a>
<a href="/product/ochistiteli/">Очистители</a>
<a href="/product/remont/">Ремонтные составы</a>
<a href="/contacts/">Контакты</a>
</nav></body></html>`

const limePaintHTML = `<html><body>
<div class="product-card">
  <p>Телефон: 8 800 555-35-35</p>
</div>
<div class="product-card">
  <h3>Краска ИЗК-1</h3>
  <a href="/product/kraska-izvestkovaya/izk-1/">Подробнее</a>
  <img src="/upload/izk-1.jpg">
  <p class="card-text">Известковая краска для фасадов</p>
</div>
<div class="product-card">
  <h3>Краска ИЗК-2</h3>
  <a href="/product/kraska-izvestkovaya/izk-2/">Подробнее</a>
</div>
<div class="product-card">
  <h3>Краска ИЗК-1 (повтор)</h3>
  <a href="/product/kraska-izvestkovaya/izk-1/#reviews">Отзывы</a>
</div>
</body></html>`

const repairHTML = `<html><body><ul>
<li><a href="/product/remont/sostav-1/">Ремонтный состав РС-1</a><img src="/upload/rs-1.jpg"></li>
<li><a href="/product/remont/filter/clear/">Сбросить фильтр</a></li>
<li><a href="/product/remont/sostav-2/">Ремонтный состав РС-2</a></li>
</ul></body></html>`

const detailHTML = `<html><body>
<header>Каталог Проекты Статьи</header>
<div class="tab-content">
  <p>Применение</p>
  <p>Для фасадов и интерьеров.</p>
  <p>Расход: 0,2 л/м²</p>
</div>
<table><tr><td>Цвет</td><td>белый</td></tr></table>
</body></html>`

func newSite(t *testing.T, homeStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		if homeStatus != http.StatusOK {
			w.WriteHeader(homeStatus)
			return
		}
		page(homeHTML)(w, r)
	})
	mux.HandleFunc("/product/kraska-izvestkovaya/{$}", page(limePaintHTML))
	mux.HandleFunc("/product/kraska-izvestkovaya/izk-1/", page(detailHTML))
	mux.HandleFunc("/product/remont/{$}", page(repairHTML))
	mux.HandleFunc("/product/ochistiteli/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestEngine(t *testing.T, baseURL string, mutate func(*config.Config)) (*Engine, *observability.Metrics) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Site.BaseURL = baseURL
	cfg.Site.Categories = []config.CategoryDescriptor{
		{ID: "lime-paint", Name: "Краска известковая", Path: "/product/kraska-izvestkovaya/", Description: "Известковые краски"},
		{ID: "cleaners", Name: "Очистители", Path: "/product/ochistiteli/"},
		{ID: "repair", Name: "Ремонтные составы", Path: "/product/remont/"},
	}
	cfg.Engine.IDStyle = string(parser.IDSequence)
	cfg.Engine.FetchDetails = false
	cfg.Engine.LinkFallback = true
	cfg.Engine.RequestTimeout = 5 * time.Second
	if mutate != nil {
		mutate(cfg)
	}

	f, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = f.Close() })

	p, err := parser.New(cfg, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	m := observability.NewMetrics(testLogger)
	return New(cfg, f, p, pipeline.Default(cfg, testLogger), m, testLogger), m
}

func TestDiscover(t *testing.T) {
	srv := newSite(t, http.StatusOK)
	e, m := newTestEngine(t, srv.URL, nil)

	c, err := e.Discover(context.Background())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(c.Categories) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(c.Categories))
	}

	lime := c.Category("lime-paint")
	if lime == nil {
		t.Fatal("lime-paint category missing")
	}
	if lime.Description != "Известковые краски" {
		t.Errorf("configured description lost: %q", lime.Description)
	}
	if len(lime.Products) != 2 {
		t.Fatalf("expected 2 lime products, got %d", len(lime.Products))
	}
	first := lime.Products[0]
	if first.ID != "lime-paint-1" || first.Name != "Краска ИЗК-1" {
		t.Errorf("first product = %s %q", first.ID, first.Name)
	}
	if first.URL != srv.URL+"/product/kraska-izvestkovaya/izk-1/" || first.Image != srv.URL+"/upload/izk-1.jpg" {
		t.Errorf("first product links = %s %s", first.URL, first.Image)
	}
	if first.Description != "Известковая краска для фасадов" {
		t.Errorf("description = %q", first.Description)
	}
	if !strings.HasPrefix(lime.Products[1].Image, "https://via.placeholder.com/") {
		t.Errorf("expected placeholder image, got %q", lime.Products[1].Image)
	}
	if m.ProductsDuplicate.Load() != 1 {
		t.Errorf("duplicates = %d", m.ProductsDuplicate.Load())
	}

	cleaners := c.Category("cleaners")
	if cleaners == nil || len(cleaners.Products) != 0 || cleaners.Products == nil {
		t.Errorf("failed category should be kept with an empty product list: %+v", cleaners)
	}
	if m.CategoriesFailed.Load() != 1 {
		t.Errorf("categories failed = %d", m.CategoriesFailed.Load())
	}

	repair := c.Category("repair")
	if repair == nil || len(repair.Products) != 2 {
		t.Fatalf("link fallback products = %+v", repair)
	}
	if repair.Products[0].ID != "repair-1" || repair.Products[0].Image != srv.URL+"/upload/rs-1.jpg" {
		t.Errorf("link product = %+v", repair.Products[0])
	}
}

func TestDiscoverFallsBackToConfiguredCategories(t *testing.T) {
	srv := newSite(t, http.StatusInternalServerError)
	e, _ := newTestEngine(t, srv.URL, nil)

	c, err := e.Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Categories) != 3 || c.Categories[0].ID != "lime-paint" {
		t.Fatalf("categories = %+v", c.Categories)
	}
	if c.Categories[0].URL != srv.URL+"/product/kraska-izvestkovaya/" {
		t.Errorf("static path not resolved: %q", c.Categories[0].URL)
	}
	if len(c.Categories[0].Products) != 2 {
		t.Errorf("products = %d", len(c.Categories[0].Products))
	}
}

func TestDiscoverRespectsLimitsAndFlags(t *testing.T) {
	srv := newSite(t, http.StatusOK)
	e, _ := newTestEngine(t, srv.URL, func(cfg *config.Config) {
		cfg.Limits.MaxProductsPerCategory = 1
		cfg.Engine.LinkFallback = false
	})

	c, err := e.Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n := len(c.Category("lime-paint").Products); n != 1 {
		t.Errorf("cap ignored: %d products", n)
	}
	if n := len(c.Category("repair").Products); n != 0 {
		t.Errorf("link fallback disabled but got %d products", n)
	}
}

func TestDiscoverWithDetails(t *testing.T) {
	srv := newSite(t, http.StatusOK)
	e, m := newTestEngine(t, srv.URL, func(cfg *config.Config) {
		cfg.Engine.FetchDetails = true
	})

	c, err := e.Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	p, _ := c.Product("lime-paint-1")
	if p == nil {
		t.Fatal("lime-paint-1 missing")
	}
	if p.Application != "Для фасадов и интерьеров." || p.Consumption != "0,2 л/м²" {
		t.Errorf("segmented fields = %q / %q", p.Application, p.Consumption)
	}
	if p.TechnicalCharacteristics["Цвет"] != "белый" {
		t.Errorf("characteristics = %v", p.TechnicalCharacteristics)
	}
	if p.Description != "Известковая краска для фасадов" {
		t.Errorf("card description should survive: %q", p.Description)
	}
	// izk-2 and both repair items have no detail page on the test site.
	if m.ProductsEnriched.Load() != 1 || m.DetailsFailed.Load() != 3 {
		t.Errorf("enriched=%d failed=%d", m.ProductsEnriched.Load(), m.DetailsFailed.Load())
	}
}

func TestDiscoverCanceled(t *testing.T) {
	srv := newSite(t, http.StatusOK)
	e, _ := newTestEngine(t, srv.URL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, err := e.Discover(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if c == nil {
		t.Fatal("partial catalog should be returned")
	}
}

func TestEnrich(t *testing.T) {
	srv := newSite(t, http.StatusOK)
	e, _ := newTestEngine(t, srv.URL, nil)

	c := &catalog.Catalog{Categories: []*catalog.Category{{
		ID:   "lime-paint",
		Name: "Краска известковая",
		Products: []*catalog.Product{
			{ID: "lime-paint-1", Name: "Краска ИЗК-1", Description: "Краткое описание", URL: srv.URL + "/product/kraska-izvestkovaya/izk-1/"},
			{ID: "lime-paint-2", Name: "Краска ИЗК-2", Consumption: "0,3 л/м²", URL: srv.URL + "/product/kraska-izvestkovaya/missing/"},
			{ID: "lime-paint-3", Name: "Краска без ссылки"},
		},
	}}}

	if err := e.Enrich(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	p1, p2 := c.Categories[0].Products[0], c.Categories[0].Products[1]
	if p1.Consumption != "0,2 л/м²" || p1.Description != "Краткое описание" {
		t.Errorf("p1 = %+v", p1)
	}
	if p2.Consumption != "0,3 л/м²" {
		t.Errorf("failed detail page should leave product unchanged: %+v", p2)
	}
	if e.Summary()["products_enriched"].(int64) != 1 {
		t.Errorf("summary = %v", e.Summary())
	}
}

// --- Dedup ---

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"HTTPS://Stone-Technology.info/product/a/", "https://stone-technology.info/product/a"},
		{"https://stone-technology.info:443/product/a#tab", "https://stone-technology.info/product/a"},
		{"https://stone-technology.info/?b=2&a=1", "https://stone-technology.info/?a=1&b=2"},
		{"https://stone-technology.info", "https://stone-technology.info/"},
	}
	for _, tt := range tests {
		if got := CanonicalizeURL(tt.in); got != tt.want {
			t.Errorf("CanonicalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDeduplicator(t *testing.T) {
	d := NewDeduplicator(4)
	if !d.Add("https://example.com/product/a/") {
		t.Error("first add should be new")
	}
	if d.Add("https://EXAMPLE.com/product/a#x") {
		t.Error("canonical duplicate should be rejected")
	}
	if !d.Add("https://example.com/product/b/") {
		t.Error("different url should be new")
	}
	if d.Count() != 2 {
		t.Errorf("count = %d", d.Count())
	}
}
