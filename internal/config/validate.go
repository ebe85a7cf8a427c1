package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Site.BaseURL); err != nil {
		return fmt.Errorf("site.base_url: %w", err)
	}
	if !strings.Contains(cfg.Site.PlaceholderImage, "%s") {
		return fmt.Errorf("site.placeholder_image must contain %%s, got %q", cfg.Site.PlaceholderImage)
	}
	seen := make(map[string]bool, len(cfg.Site.Categories))
	for i, c := range cfg.Site.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("site.categories[%d].name must not be empty", i)
		}
		if c.ID != "" {
			if seen[c.ID] {
				return fmt.Errorf("site.categories[%d].id %q is duplicated", i, c.ID)
			}
			seen[c.ID] = true
		}
	}

	if cfg.Engine.RequestTimeout <= 0 {
		return fmt.Errorf("engine.request_timeout must be > 0")
	}
	if cfg.Engine.PolitenessDelay < 0 {
		return fmt.Errorf("engine.politeness_delay must be >= 0")
	}
	if cfg.Engine.MaxRetries < 0 {
		return fmt.Errorf("engine.max_retries must be >= 0, got %d", cfg.Engine.MaxRetries)
	}
	if cfg.Engine.RetryDelay < 0 {
		return fmt.Errorf("engine.retry_delay must be >= 0")
	}
	if cfg.Engine.IDStyle != "sequence" && cfg.Engine.IDStyle != "named" {
		return fmt.Errorf("engine.id_style must be 'sequence' or 'named', got %q", cfg.Engine.IDStyle)
	}

	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if cfg.Limits.MaxProductsPerCategory < 1 {
		return fmt.Errorf("limits.max_products_per_category must be >= 1, got %d", cfg.Limits.MaxProductsPerCategory)
	}
	if cfg.Limits.MaxSpecifications < 0 {
		return fmt.Errorf("limits.max_specifications must be >= 0")
	}
	if cfg.Limits.CardDescriptionLength < 1 || cfg.Limits.DescriptionLength < 1 {
		return fmt.Errorf("limits description lengths must be >= 1")
	}
	if cfg.Limits.HeadingMaxLength < 1 {
		return fmt.Errorf("limits.heading_max_length must be >= 1")
	}
	if cfg.Limits.MinNameLength < 1 {
		return fmt.Errorf("limits.min_name_length must be >= 1")
	}

	switch cfg.Storage.Type {
	case "json":
	case "mongodb", "both":
		if cfg.Storage.Mongo.URI == "" || cfg.Storage.Mongo.Database == "" || cfg.Storage.Mongo.Collection == "" {
			return fmt.Errorf("storage.mongo uri, database and collection are required for %q", cfg.Storage.Type)
		}
	default:
		return fmt.Errorf("storage.type %q is not supported (valid: json, mongodb, both)", cfg.Storage.Type)
	}
	if cfg.Storage.Type != "mongodb" && cfg.Storage.OutputPath == "" {
		return fmt.Errorf("storage.output_path must not be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
