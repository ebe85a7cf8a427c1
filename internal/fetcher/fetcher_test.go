package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/IshaanNene/catalogscraper/internal/config"
	"github.com/IshaanNene/catalogscraper/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newRequest(t *testing.T, rawURL string) *types.Request {
	t.Helper()
	req, err := types.NewRequest(rawURL, types.TagCategory)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func newHTTPFetcher(t *testing.T) *HTTPFetcher {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Engine.RequestTimeout = 5 * time.Second
	f, err := NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

// --- HTTP fetcher ---

func TestHTTPFetcherDecodesGzipAndCharset(t *testing.T) {
	body, err := charmap.Windows1251.NewEncoder().String("<html><body><h3>Краска</h3></body></html>")
	if err != nil {
		t.Fatal(err)
	}
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, _ = w.Write([]byte(body))
	_ = w.Close()

	var gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.Header.Get("Accept-Language")
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(gz.Bytes())
	}))
	defer srv.Close()

	page, err := newHTTPFetcher(t).Fetch(context.Background(), newRequest(t, srv.URL))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(string(page.Body), "Краска") {
		t.Errorf("body not decoded to UTF-8: %q", page.Body)
	}
	if !strings.HasPrefix(gotLang, "ru-RU") {
		t.Errorf("Accept-Language = %q", gotLang)
	}
	if !page.IsSuccess() || page.URL() != srv.URL {
		t.Errorf("page = %d %s", page.StatusCode, page.URL())
	}
}

func TestHTTPFetcherStatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status == http.StatusTooManyRequests {
					w.Header().Set("Retry-After", "7")
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newHTTPFetcher(t).Fetch(context.Background(), newRequest(t, srv.URL))
			var fe *types.FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FetchError, got %v", err)
			}
			if fe.StatusCode != tt.status || fe.Retryable != tt.retryable {
				t.Errorf("got status=%d retryable=%v", fe.StatusCode, fe.Retryable)
			}
			if tt.status == http.StatusTooManyRequests && fe.RetryAfter != 7*time.Second {
				t.Errorf("retry after = %v", fe.RetryAfter)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d := parseRetryAfter(""); d != 5*time.Second {
		t.Errorf("default = %v", d)
	}
	if d := parseRetryAfter("600"); d != 2*time.Minute {
		t.Errorf("cap = %v", d)
	}
	if d := parseRetryAfter("garbage"); d != 5*time.Second {
		t.Errorf("garbage = %v", d)
	}
}

// --- Decorators ---

type stubFetcher struct {
	errs   []error
	calls  int
	closed bool
}

func (s *stubFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Page, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &types.Page{Request: req, StatusCode: 200, FinalURL: req.URLString()}, nil
}

func (s *stubFetcher) Close() error { s.closed = true; return nil }
func (s *stubFetcher) Type() string { return "stub" }

func retryable() error {
	return &types.FetchError{URL: "u", Err: errors.New("timeout"), Retryable: true}
}

func TestRetryingRecovers(t *testing.T) {
	stub := &stubFetcher{errs: []error{retryable(), retryable()}}
	r := NewRetrying(stub, 2, time.Millisecond, testLogger)

	if _, err := r.Fetch(context.Background(), newRequest(t, "https://example.com/")); err != nil {
		t.Fatalf("expected success on third attempt: %v", err)
	}
	if stub.calls != 3 {
		t.Errorf("calls = %d", stub.calls)
	}
}

func TestRetryingGivesUp(t *testing.T) {
	stub := &stubFetcher{errs: []error{retryable(), retryable(), retryable(), retryable()}}
	r := NewRetrying(stub, 2, time.Millisecond, testLogger)

	_, err := r.Fetch(context.Background(), newRequest(t, "https://example.com/"))
	if !errors.Is(err, types.ErrMaxRetries) {
		t.Fatalf("expected ErrMaxRetries, got %v", err)
	}
	if !types.IsRetryable(err) {
		t.Error("last fetch error should stay reachable")
	}
	if stub.calls != 3 {
		t.Errorf("calls = %d, want 3", stub.calls)
	}
}

func TestRetryingSkipsPermanentErrors(t *testing.T) {
	perm := &types.FetchError{URL: "u", StatusCode: 404, Err: errors.New("not found")}
	stub := &stubFetcher{errs: []error{perm}}
	r := NewRetrying(stub, 5, time.Millisecond, testLogger)

	_, err := r.Fetch(context.Background(), newRequest(t, "https://example.com/"))
	if !errors.Is(err, perm) {
		t.Fatalf("expected the permanent error, got %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("calls = %d", stub.calls)
	}
}

func TestRetryingHonorsCancellation(t *testing.T) {
	stub := &stubFetcher{errs: []error{retryable(), retryable()}}
	r := NewRetrying(stub, 2, time.Hour, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Fetch(ctx, newRequest(t, "https://example.com/")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPacedSpacesFetches(t *testing.T) {
	stub := &stubFetcher{}
	p := NewPaced(stub, 30*time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := p.Fetch(context.Background(), newRequest(t, "https://example.com/")); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("three paced fetches took only %v", elapsed)
	}
	if err := p.Close(); err != nil || !stub.closed {
		t.Error("close should propagate")
	}
}

func TestPacedDisabled(t *testing.T) {
	p := NewPaced(&stubFetcher{}, 0)
	start := time.Now()
	for i := 0; i < 20; i++ {
		_, _ = p.Fetch(context.Background(), newRequest(t, "https://example.com/"))
	}
	if time.Since(start) > time.Second {
		t.Error("zero interval should not pace")
	}
}

// --- Browser fetcher ---

type fakeRenderer struct {
	navigated []string
	waited    string
	source    string
	finalURL  string
	navErr    error
	closed    bool
}

func (f *fakeRenderer) Navigate(ctx context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return f.navErr
}

func (f *fakeRenderer) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	f.waited = selector
	return errors.New("not found")
}

func (f *fakeRenderer) PageSource(ctx context.Context) (string, string, error) {
	return f.source, f.finalURL, nil
}

func (f *fakeRenderer) Close() error { f.closed = true; return nil }

func TestBrowserFetcher(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Browser.SettleDelay = 0
	cfg.Browser.WaitSelector = ".product-card"

	r := &fakeRenderer{source: "<html><body>ok</body></html>", finalURL: "https://example.com/final/"}
	bf := NewBrowserFetcher(r, cfg, testLogger)

	page, err := bf.Fetch(context.Background(), newRequest(t, "https://example.com/start/"))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(page.Body) != r.source || page.URL() != "https://example.com/final/" {
		t.Errorf("page = %q %s", page.Body, page.URL())
	}
	if r.waited != ".product-card" {
		t.Errorf("waited for %q", r.waited)
	}
	if bf.Type() != "browser" {
		t.Errorf("type = %q", bf.Type())
	}
	if err := bf.Close(); err != nil || !r.closed {
		t.Error("renderer should be closed")
	}
}

func TestBrowserFetcherNavigationFailureIsRetryable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Browser.SettleDelay = 0
	r := &fakeRenderer{navErr: errors.New("net::ERR_CONNECTION_RESET")}

	_, err := NewBrowserFetcher(r, cfg, testLogger).Fetch(context.Background(), newRequest(t, "https://example.com/"))
	if !types.IsRetryable(err) {
		t.Errorf("expected retryable error, got %v", err)
	}
}
