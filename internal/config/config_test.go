package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Documents.TopK != 5 {
		t.Errorf("top_k = %d, want 5", cfg.Documents.TopK)
	}
	if cfg.Router.AdapterTimeout != 3*time.Second {
		t.Errorf("adapter_timeout = %s, want 3s", cfg.Router.AdapterTimeout)
	}
	if cfg.Chart.Width != 1000 || cfg.Chart.Height != 600 || cfg.Chart.DPI != 100 {
		t.Errorf("chart = %dx%d@%v, want 1000x600@100", cfg.Chart.Width, cfg.Chart.Height, cfg.Chart.DPI)
	}
	if cfg.Market.HistoryRange != "1mo" {
		t.Errorf("history_range = %q, want 1mo", cfg.Market.HistoryRange)
	}
	if cfg.Router.DefaultRoute != "document" {
		t.Errorf("default_route = %q, want document", cfg.Router.DefaultRoute)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
router:
  adapter_timeout: 750ms
documents:
  top_k: 3
chart:
  line_color: "#ff0000"
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FINSIGHT_TOP_K", "8")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Router.AdapterTimeout != 750*time.Millisecond {
		t.Errorf("adapter_timeout = %s, want 750ms", cfg.Router.AdapterTimeout)
	}
	if cfg.Documents.TopK != 8 {
		t.Errorf("env override ignored: top_k = %d", cfg.Documents.TopK)
	}
	if cfg.Chart.LineColor != "#ff0000" {
		t.Errorf("line_color = %q", cfg.Chart.LineColor)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"bad order column", func(c *Config) { c.Database.OrderColumn = "id; DROP TABLE x" }},
		{"zero timeout", func(c *Config) { c.Router.AdapterTimeout = -1 }},
		{"bad default route", func(c *Config) { c.Router.DefaultRoute = "market" }},
		{"rest without url", func(c *Config) { c.Market.Provider = "rest" }},
		{"unknown metric", func(c *Config) { c.Analytics.DefaultMetrics = []string{"ebitda"} }},
		{"bad colour", func(c *Config) { c.Chart.LineColor = "blue" }},
		{"redis without address", func(c *Config) { c.Queue.Backend = "redis" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.applyDefaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
