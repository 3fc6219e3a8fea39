package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 4000
catalog:
  host: https://catalog.example
matching:
  threshold: 0.5
scheduler:
  grab_delay: 10m
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SERIALGRAB_METADATA_TMDB_LANGUAGE", "en-US")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Catalog.Host != "https://catalog.example" {
		t.Errorf("Catalog.Host = %q", cfg.Catalog.Host)
	}
	if cfg.Matching.Threshold != 0.5 {
		t.Errorf("Matching.Threshold = %v, want 0.5", cfg.Matching.Threshold)
	}
	if cfg.Scheduler.GrabDelay != 10*time.Minute {
		t.Errorf("Scheduler.GrabDelay = %v, want 10m", cfg.Scheduler.GrabDelay)
	}
	if cfg.Metadata.TMDB.Language != "en-US" {
		t.Errorf("TMDB.Language = %q, want en-US", cfg.Metadata.TMDB.Language)
	}
	if cfg.Matching.TitleWeight != 0.4 {
		t.Errorf("TitleWeight default lost: %v", cfg.Matching.TitleWeight)
	}
	if len(cfg.Extractor.QualityBuckets) != 3 {
		t.Errorf("QualityBuckets = %d, want 3 defaults", len(cfg.Extractor.QualityBuckets))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty host", func(c *Config) { c.Catalog.Host = " " }, true},
		{"threshold above one", func(c *Config) { c.Matching.Threshold = 1.5 }, true},
		{"inverted bucket", func(c *Config) {
			c.Extractor.QualityBuckets = []QualityBucket{{MinHeight: 800, MaxHeight: 700, Label: "x"}}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestYAML_MasksSecrets(t *testing.T) {
	cfg := Default()
	cfg.Metadata.TMDB.APIKey = "secret-key"
	cfg.Arr.Sonarr.APIKey = "sonarr-key"

	out, err := cfg.YAML()
	if err != nil {
		t.Fatalf("YAML() error = %v", err)
	}
	s := string(out)
	if strings.Contains(s, "secret-key") || strings.Contains(s, "sonarr-key") {
		t.Errorf("YAML() leaked a key:\n%s", s)
	}
	if !strings.Contains(s, "uaserial.top") {
		t.Errorf("YAML() missing catalog host:\n%s", s)
	}
	if cfg.Metadata.TMDB.APIKey != "secret-key" {
		t.Errorf("YAML() mutated the receiver")
	}
}
