package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if len(cfg.Site.Categories) != 10 {
		t.Errorf("expected 10 default categories, got %d", len(cfg.Site.Categories))
	}
	if cfg.Limits.MaxProductsPerCategory != 50 {
		t.Errorf("expected product cap 50, got %d", cfg.Limits.MaxProductsPerCategory)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad base url", func(c *Config) { c.Site.BaseURL = "ftp://example.com" }},
		{"placeholder without verb", func(c *Config) { c.Site.PlaceholderImage = "https://x/img.png" }},
		{"empty category name", func(c *Config) { c.Site.Categories[0].Name = " " }},
		{"duplicate category id", func(c *Config) { c.Site.Categories[1].ID = c.Site.Categories[0].ID }},
		{"negative retries", func(c *Config) { c.Engine.MaxRetries = -1 }},
		{"unknown id style", func(c *Config) { c.Engine.IDStyle = "uuid" }},
		{"unknown fetcher", func(c *Config) { c.Fetcher.Type = "curl" }},
		{"zero product cap", func(c *Config) { c.Limits.MaxProductsPerCategory = 0 }},
		{"unknown storage", func(c *Config) { c.Storage.Type = "csv" }},
		{"mongo without uri", func(c *Config) { c.Storage.Type = "mongodb"; c.Storage.Mongo.URI = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalogscraper.yaml")
	content := `
site:
  base_url: https://example.com
  categories:
    - id: paints
      name: Краски
      path: /product/kraski/
engine:
  politeness_delay: 250ms
  id_style: sequence
storage:
  output_path: out.json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Site.BaseURL != "https://example.com" {
		t.Errorf("base url = %q", cfg.Site.BaseURL)
	}
	if len(cfg.Site.Categories) != 1 || cfg.Site.Categories[0].ID != "paints" {
		t.Errorf("categories = %+v", cfg.Site.Categories)
	}
	if cfg.Engine.PolitenessDelay != 250*time.Millisecond {
		t.Errorf("politeness delay = %v", cfg.Engine.PolitenessDelay)
	}
	if cfg.Engine.IDStyle != "sequence" {
		t.Errorf("id style = %q", cfg.Engine.IDStyle)
	}
	if cfg.Engine.MaxRetries != 2 {
		t.Errorf("default retries should survive, got %d", cfg.Engine.MaxRetries)
	}
	if cfg.Storage.OutputPath != "out.json" {
		t.Errorf("output path = %q", cfg.Storage.OutputPath)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}
