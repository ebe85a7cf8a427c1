package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/catalogscraper/internal/config"
	"github.com/IshaanNene/catalogscraper/internal/types"
)

// Renderer is a single browser session that loads pages and exposes the
// rendered markup.
type Renderer interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	PageSource(ctx context.Context) (source, finalURL string, err error)
	Close() error
}

// BrowserFetcher implements Fetcher on top of a Renderer. Pages are loaded
// one at a time since the session has a single tab.
type BrowserFetcher struct {
	renderer Renderer
	cfg      *config.BrowserConfig
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewBrowserFetcher creates a fetcher that owns r and closes it on Close.
func NewBrowserFetcher(r Renderer, cfg *config.Config, logger *slog.Logger) *BrowserFetcher {
	return &BrowserFetcher{
		renderer: r,
		cfg:      &cfg.Browser,
		logger:   logger.With("component", "browser_fetcher"),
	}
}

// Fetch navigates to the request URL, waits for the page to settle and
// returns the rendered HTML.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Page, error) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	start := time.Now()
	if err := bf.renderer.Navigate(ctx, req.URLString()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: ctx.Err() == nil}
	}

	if bf.cfg.WaitSelector != "" {
		if err := bf.renderer.WaitFor(ctx, bf.cfg.WaitSelector, bf.cfg.WaitTimeout); err != nil {
			bf.logger.Warn("wait selector timeout, continuing", "url", req.URLString(), "selector", bf.cfg.WaitSelector, "error", err)
		}
	}
	if err := sleep(ctx, bf.cfg.SettleDelay); err != nil {
		return nil, err
	}

	source, finalURL, err := bf.renderer.PageSource(ctx)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: ctx.Err() == nil}
	}
	if finalURL == "" {
		finalURL = req.URLString()
	}

	duration := time.Since(start)
	bf.logger.Debug("browser fetch complete",
		"url", req.URLString(),
		"final_url", finalURL,
		"size", len(source),
		"duration", duration,
	)
	return types.NewRenderedPage(req, []byte(source), finalURL, duration), nil
}

// Close shuts down the browser session.
func (bf *BrowserFetcher) Close() error {
	return bf.renderer.Close()
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}

// RodRenderer drives a Chromium tab through go-rod.
type RodRenderer struct {
	browser *rod.Browser
	page    *rod.Page
	timeout time.Duration
	logger  *slog.Logger
}

// NewRodRenderer launches Chromium and opens one tab, patched with
// go-rod/stealth when cfg.Stealth is set.
func NewRodRenderer(cfg *config.BrowserConfig, timeout time.Duration, logger *slog.Logger) (*RodRenderer, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")
	if cfg.BinPath != "" {
		l = l.Bin(cfg.BinPath)
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		l = l.Set("window-size", strconv.Itoa(cfg.WindowWidth)+","+strconv.Itoa(cfg.WindowHeight))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	var page *rod.Page
	if cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:  cfg.WindowWidth,
			Height: cfg.WindowHeight,
		})
		if err != nil {
			logger.Warn("failed to set viewport", "error", err)
		}
	}

	logger.Info("browser ready", "headless", cfg.Headless, "stealth", cfg.Stealth)
	return &RodRenderer{
		browser: browser,
		page:    page,
		timeout: timeout,
		logger:  logger.With("component", "rod_renderer"),
	}, nil
}

// Navigate loads url and waits for the load event.
func (r *RodRenderer) Navigate(ctx context.Context, url string) error {
	p := r.page.Context(ctx).Timeout(r.timeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	return nil
}

// WaitFor waits until selector matches an element.
func (r *RodRenderer) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = r.timeout
	}
	_, err := r.page.Context(ctx).Timeout(timeout).Element(selector)
	return err
}

// PageSource returns the current DOM serialized as HTML and the page URL.
func (r *RodRenderer) PageSource(ctx context.Context) (string, string, error) {
	p := r.page.Context(ctx).Timeout(r.timeout)
	html, err := p.HTML()
	if err != nil {
		return "", "", fmt.Errorf("page html: %w", err)
	}
	finalURL := ""
	if info, err := p.Info(); err == nil && info != nil {
		finalURL = info.URL
	}
	return html, finalURL, nil
}

// Close closes the tab and the browser.
func (r *RodRenderer) Close() error {
	if r.page != nil {
		_ = r.page.Close()
	}
	if r.browser != nil {
		return r.browser.Close()
	}
	return nil
}
