package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/theoremus-urban-solutions/gtfs-transformer/config"
)

const sampleYAML = `
input: s3://feeds/agency.zip
output:
  path: out/compact.zip
  database:
    driver: sqlite
    dsn: out/compact.db
defaultAgencyID: metro
strategies: [compact_ids]
logging:
  level: debug
  format: json
s3:
  region: eu-central-1
  endpoint: http://localhost:9000
  pathStyle: true
metrics:
  textfile: out/metrics.prom
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// TestConfig_Load tests loading a complete file
func TestConfig_Load(t *testing.T) {
	path := writeFile(t, t.TempDir(), "gtfs-transformer.yml", sampleYAML)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Input != "s3://feeds/agency.zip" {
		t.Errorf("Input = %q", cfg.Input)
	}
	if cfg.Output.Database.Driver != "sqlite" || cfg.Output.Database.DSN != "out/compact.db" {
		t.Errorf("Database = %+v", cfg.Output.Database)
	}
	if cfg.DefaultAgencyID != "metro" {
		t.Errorf("DefaultAgencyID = %q", cfg.DefaultAgencyID)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if !cfg.S3.PathStyle || cfg.S3.Region != "eu-central-1" {
		t.Errorf("S3 = %+v", cfg.S3)
	}
	if cfg.Metrics.Textfile != "out/metrics.prom" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}

	t.Logf("✓ Loaded config with input: %s", cfg.Input)
}

// TestConfig_Defaults tests that unset fields are filled in
func TestConfig_Defaults(t *testing.T) {
	cfg, err := config.Parse([]byte("input: feed.zip\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cfg.Strategies) != 1 || cfg.Strategies[0] != "compact_ids" {
		t.Errorf("Strategies = %v, want [compact_ids]", cfg.Strategies)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.S3.Region != "us-east-1" {
		t.Errorf("S3.Region = %q", cfg.S3.Region)
	}

	def := config.Default()
	if def.Logging.Level != "info" {
		t.Errorf("Default() level = %q", def.Logging.Level)
	}
}

// TestConfig_Validation tests rejected values
func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad log level", "logging: {level: loud}"},
		{"bad log format", "logging: {format: xml}"},
		{"bad driver", "output: {database: {driver: mysql, dsn: x}}"},
		{"driver without dsn", "output: {database: {driver: sqlite}}"},
		{"bad endpoint", "s3: {endpoint: 'not a url'}"},
		{"key without secret", "s3: {accessKeyID: AKIA}"},
		{"empty strategy", "strategies: ['']"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := config.Parse([]byte(tt.yaml)); err == nil {
				t.Errorf("Parse(%q) should fail", tt.yaml)
			}
		})
	}
}

// TestConfig_InvalidYAML tests error handling for invalid YAML
func TestConfig_InvalidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "invalid: yaml: content: [[[")

	if _, err := config.Load(path); err == nil {
		t.Error("Loading invalid YAML should return error")
	}
}

// TestConfig_LoadAppConfig tests the search path lookup
func TestConfig_LoadAppConfig(t *testing.T) {
	origConfig := config.Config
	defer func() { config.Config = origConfig }()

	dir := t.TempDir()
	chdir(t, dir)

	err := config.LoadAppConfig()
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadAppConfig() error = %v, want os.ErrNotExist", err)
	}
	if config.Config.Logging.Level != "info" {
		t.Error("missing config should leave defaults in Config")
	}

	writeFile(t, dir, "config.yml", "input: second.zip\n")
	writeFile(t, dir, "gtfs-transformer.yml", "input: first.zip\n")
	if err := config.LoadAppConfig(); err != nil {
		t.Fatalf("LoadAppConfig failed: %v", err)
	}
	if config.Config.Input != "first.zip" {
		t.Errorf("Input = %q, want first.zip from gtfs-transformer.yml", config.Config.Input)
	}

	t.Logf("✓ Loaded config from search path: %s", config.Config.Input)
}
