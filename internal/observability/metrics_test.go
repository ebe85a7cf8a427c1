package observability

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics(testLogger)
	m.PagesFetched.Add(3)
	m.ProductsBuilt.Add(2)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"# TYPE catalogscraper_pages_fetched_total counter",
		"catalogscraper_pages_fetched_total 3",
		"catalogscraper_products_built_total 2",
		"catalogscraper_pages_failed_total 0",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q", want)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics(testLogger)
	m.CategoriesFailed.Add(1)
	snap := m.Snapshot()
	if snap["categories_failed"] != 1 || snap["products_built"] != 0 {
		t.Errorf("snapshot = %v", snap)
	}
	if len(snap) != len(m.samples()) {
		t.Errorf("snapshot has %d keys, exposition %d", len(snap), len(m.samples()))
	}
}
