package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/catalogscraper/internal/api"
	"github.com/IshaanNene/catalogscraper/internal/catalog"
	"github.com/IshaanNene/catalogscraper/internal/config"
	"github.com/IshaanNene/catalogscraper/internal/engine"
	"github.com/IshaanNene/catalogscraper/internal/fetcher"
	"github.com/IshaanNene/catalogscraper/internal/monitor"
	"github.com/IshaanNene/catalogscraper/internal/observability"
	"github.com/IshaanNene/catalogscraper/internal/parser"
	"github.com/IshaanNene/catalogscraper/internal/pipeline"
	"github.com/IshaanNene/catalogscraper/internal/storage"
	"github.com/IshaanNene/catalogscraper/internal/types"
)

// scrapeFlags are the overrides shared by discover and enrich.
type scrapeFlags struct {
	output      string
	fetcherType string
	delay       time.Duration
	maxRetries  int
	headless    bool
}

func (f *scrapeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "catalog JSON path (default from config)")
	cmd.Flags().StringVar(&f.fetcherType, "fetcher", "", "page fetcher: http or browser")
	cmd.Flags().DurationVar(&f.delay, "delay", 0, "politeness delay between requests")
	cmd.Flags().IntVar(&f.maxRetries, "max-retries", 0, "retries per failed request")
	cmd.Flags().BoolVar(&f.headless, "headless", true, "run the browser fetcher headless")
}

func (f *scrapeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("output") {
		cfg.Storage.OutputPath = f.output
	}
	if changed("fetcher") {
		cfg.Fetcher.Type = f.fetcherType
	}
	if changed("delay") {
		cfg.Engine.PolitenessDelay = f.delay
	}
	if changed("max-retries") {
		cfg.Engine.MaxRetries = f.maxRetries
	}
	if changed("headless") {
		cfg.Browser.Headless = f.headless
	}
}

// run holds the collaborators of one scrape run.
type run struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	store   storage.Store
	fetcher fetcher.Fetcher
	engine  *engine.Engine
}

// newRun opens storage first so an unreachable backend fails before any
// page is fetched.
func newRun(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*run, error) {
	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		metrics.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path)
	}

	store, err := storage.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	f, err := fetcher.New(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	p, err := parser.New(cfg, logger)
	if err != nil {
		_ = f.Close()
		_ = store.Close()
		return nil, fmt.Errorf("create parser: %w", err)
	}

	return &run{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		store:   store,
		fetcher: f,
		engine:  engine.New(cfg, f, p, pipeline.Default(cfg, logger), metrics, logger),
	}, nil
}

func (r *run) Close() {
	if err := r.fetcher.Close(); err != nil {
		r.logger.Error("fetcher close error", "error", err)
	}
	if err := r.store.Close(); err != nil {
		r.logger.Error("storage close error", "error", err)
	}
}

// reportChanges logs how c differs from the catalog about to be replaced.
func (r *run) reportChanges(ctx context.Context, c *catalog.Catalog) {
	prev, err := r.store.Load(ctx)
	switch {
	case errors.Is(err, types.ErrCatalogNotFound):
		prev = nil
	case err != nil:
		r.logger.Warn("previous catalog unreadable, skipping change report", "error", err)
		return
	}
	monitor.Diff(prev, c).Log(r.logger)
}

// outputName describes where the catalog is written.
func (r *run) outputName() string {
	switch r.cfg.Storage.Type {
	case "mongodb":
		return "mongodb " + r.cfg.Storage.Mongo.Database + "." + r.cfg.Storage.Mongo.Collection
	case "both":
		return r.cfg.Storage.OutputPath + " + mongodb"
	default:
		return r.cfg.Storage.OutputPath
	}
}

// discoverCmd creates the "discover" subcommand.
func discoverCmd() *cobra.Command {
	var (
		flags        scrapeFlags
		details      bool
		maxProducts  int
		idStyle      string
		linkFallback bool
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scrape categories and product cards into a new catalog",
		Long: `Resolve the category list from the home page (falling back to the configured
categories), scrape product cards from every category page and save the
catalog, replacing any previous one. Interrupting the run saves what was
collected so far.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(cfg *config.Config) {
				flags.apply(cmd, cfg)
				if cmd.Flags().Changed("details") {
					cfg.Engine.FetchDetails = details
				}
				if cmd.Flags().Changed("max-products") {
					cfg.Limits.MaxProductsPerCategory = maxProducts
				}
				if cmd.Flags().Changed("id-style") {
					cfg.Engine.IDStyle = idStyle
				}
				if cmd.Flags().Changed("link-fallback") {
					cfg.Engine.LinkFallback = linkFallback
				}
			})
			if err != nil {
				return err
			}
			logger, closeLog, err := setupLogger(&cfg.Logging)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signalContext()
			defer stop()

			r, err := newRun(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer r.Close()

			logger.Info("starting discovery",
				"base_url", cfg.Site.BaseURL,
				"fetcher", cfg.Fetcher.Type,
				"fetch_details", cfg.Engine.FetchDetails,
				"output", r.outputName(),
			)

			start := time.Now()
			c, runErr := r.engine.Discover(ctx)
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}
			if runErr != nil {
				logger.Warn("discovery interrupted, saving partial catalog", "categories", len(c.Categories))
			}

			saveCtx := context.WithoutCancel(ctx)
			r.reportChanges(saveCtx, c)
			if err := r.store.Save(saveCtx, c); err != nil {
				return fmt.Errorf("save catalog: %w", err)
			}
			r.metrics.CatalogsSaved.Add(1)

			stats := r.engine.Summary()
			logger.Info("discovery complete", "stats", stats)
			title := "Discovery complete"
			if runErr != nil {
				title = "Discovery interrupted"
			}
			printSummary(cmd.OutOrStdout(), title, time.Since(start), stats, r.outputName())
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&details, "details", false, "also fetch every product detail page")
	cmd.Flags().IntVar(&maxProducts, "max-products", 0, "maximum products per category")
	cmd.Flags().StringVar(&idStyle, "id-style", "", "product id style: named or sequence")
	cmd.Flags().BoolVar(&linkFallback, "link-fallback", true, "collect product links when a category has no cards")
	return cmd
}

// enrichCmd creates the "enrich" subcommand.
func enrichCmd() *cobra.Command {
	var flags scrapeFlags

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Merge product detail pages into the stored catalog",
		Long: `Load the stored catalog, fetch the detail page of every product with a URL
and merge the extracted fields. Existing values are only replaced by
non-empty ones. The catalog is saved even when the run is interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(cfg *config.Config) { flags.apply(cmd, cfg) })
			if err != nil {
				return err
			}
			logger, closeLog, err := setupLogger(&cfg.Logging)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signalContext()
			defer stop()

			r, err := newRun(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer r.Close()

			c, err := r.store.Load(ctx)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			logger.Info("starting enrichment", "categories", len(c.Categories), "products", c.ProductCount())

			start := time.Now()
			runErr := r.engine.Enrich(ctx, c)
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}

			if err := r.store.Save(context.WithoutCancel(ctx), c); err != nil {
				return fmt.Errorf("save catalog: %w", err)
			}
			r.metrics.CatalogsSaved.Add(1)

			stats := r.engine.Summary()
			logger.Info("enrichment complete", "stats", stats)
			title := "Enrichment complete"
			if runErr != nil {
				title = "Enrichment interrupted"
			}
			printSummary(cmd.OutOrStdout(), title, time.Since(start), stats, r.outputName())
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the stored catalog over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(cfg *config.Config) {
				if cmd.Flags().Changed("addr") {
					cfg.API.Addr = addr
				}
			})
			if err != nil {
				return err
			}
			logger, closeLog, err := setupLogger(&cfg.Logging)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signalContext()
			defer stop()

			store, err := storage.New(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer store.Close()

			var metrics *observability.Metrics
			if cfg.Metrics.Enabled {
				metrics = observability.NewMetrics(logger)
			}
			return api.NewServer(store, metrics, logger).ListenAndServe(ctx, cfg.API.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
