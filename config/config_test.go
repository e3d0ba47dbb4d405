package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.CheckpointIndexPath != cfg.EnrichedCSVPath+".idx" {
		t.Errorf("index path: got %q", cfg.CheckpointIndexPath)
	}
	if cfg.MaxRetries != 3 || cfg.RequestTimeout != 30*time.Second || cfg.PageDelay != 5*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper.yaml")
	yaml := "base_url: https://www.zillow.com/omaha-ne\nmax_pages: 4\npage_delay: 2s\nmax_retries: 5\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MAX_RETRIES", "7")
	t.Setenv("PACE_DELAY_MAX", "9")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("POSTGRES_ENABLED", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://www.zillow.com/omaha-ne" || cfg.MaxPages != 4 {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.PageDelay != 2*time.Second {
		t.Errorf("PageDelay: got %v", cfg.PageDelay)
	}
	if cfg.MaxRetries != 7 {
		t.Errorf("env should override yaml, got MaxRetries %d", cfg.MaxRetries)
	}
	if cfg.PaceDelayMax != 9*time.Second {
		t.Errorf("bare seconds: got %v", cfg.PaceDelayMax)
	}
	if cfg.RateLimitRPS != 0.5 || !cfg.PostgresEnabled {
		t.Errorf("float/bool env: %+v", cfg)
	}
}

func TestLoadMissingYAML(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"retries", func(c *Config) { c.MaxRetries = 0 }, "max retries"},
		{"retry range", func(c *Config) { c.RetryDelayMin = 5 * time.Second }, "retry delay"},
		{"pace range", func(c *Config) { c.PaceDelayMax = 0 }, "pace delay"},
		{"fetch mode", func(c *Config) { c.FetchMode = "curl" }, "fetch mode"},
		{"checkpoint mode", func(c *Config) { c.CheckpointMode = "journal" }, "checkpoint mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := Default()
	cfg.PostgresPassword = "pw"
	want := "host=localhost port=5432 user=scraper password=pw dbname=zillow sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN: got %q, want %q", got, want)
	}
}
