package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/vegasq/planexec/query"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "planexec.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadWithoutNullOrdering(t *testing.T) {
	cfg, err := Load(writeConfig(t, "output:\n  format: csv\n"), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	_, err = cfg.EngineOptions(nil)
	if err == nil || !strings.Contains(err.Error(), "null_ordering") {
		t.Errorf("EngineOptions() error = %v, want missing null_ordering", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
engine:
  null_ordering: first
  max_recursion: 50
  parallel: true
catalog:
  data_dir: /data
  tables:
    Events: logs/*.parquet
output:
  format: csv
`)
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.NullOrdering != "first" || cfg.Engine.MaxRecursion != 50 || !cfg.Engine.Parallel {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Engine.BatchSize != query.DefaultBatchSize {
		t.Errorf("batch_size = %d, want default %d", cfg.Engine.BatchSize, query.DefaultBatchSize)
	}
	if cfg.Catalog.DataDir != "/data" || cfg.Catalog.Tables["events"] != "logs/*.parquet" {
		t.Errorf("catalog = %+v", cfg.Catalog)
	}
	if cfg.Output.Format != "csv" || cfg.Output.MaxWidth != 50 {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %s, want warn", cfg.Log.Level)
	}
}

func TestLoadEnvironmentAndFlags(t *testing.T) {
	t.Setenv("PLANEXEC_ENGINE_NULL_ORDERING", "last")
	t.Setenv("PLANEXEC_OUTPUT_FORMAT", "json")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("format", "table", "")
	flags.Int("max-width", 50, "")
	if err := flags.Parse([]string{"--format", "csv"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(writeConfig(t, "output:\n  max_width: 10\n"), flags)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.NullOrdering != "last" {
		t.Errorf("null_ordering = %q, want last from environment", cfg.Engine.NullOrdering)
	}
	if cfg.Output.Format != "csv" {
		t.Errorf("format = %q, want csv from flag", cfg.Output.Format)
	}
	if cfg.Output.MaxWidth != 10 {
		t.Errorf("max_width = %d, want 10 from file (flag not set)", cfg.Output.MaxWidth)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"jsonl format", func(c *Config) { c.Output.Format = "jsonl" }, false},
		{"missing null ordering", func(c *Config) { c.Engine.NullOrdering = "" }, false},
		{"bad null ordering", func(c *Config) { c.Engine.NullOrdering = "middle" }, true},
		{"negative recursion", func(c *Config) { c.Engine.MaxRecursion = -1 }, true},
		{"negative materialized rows", func(c *Config) { c.Engine.MaxMaterializedRows = -5 }, true},
		{"negative width", func(c *Config) { c.Output.MaxWidth = -1 }, true},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Engine.NullOrdering = "last"
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := defaultConfig()
	cfg.Engine.NullOrdering = "FIRST"
	cfg.Engine.MaxMaterializedRows = 100
	cfg.Engine.Parallel = true

	opts, err := cfg.EngineOptions(nil)
	if err != nil {
		t.Fatalf("EngineOptions() error = %v", err)
	}
	if opts.NullOrdering != query.NullsFirst || opts.MaxMaterializedRows != 100 || !opts.Parallel {
		t.Errorf("EngineOptions() = %+v", opts)
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("options do not validate: %v", err)
	}
	if _, err := query.NewExecutor(query.NewMemoryCatalog(), opts); err != nil {
		t.Errorf("NewExecutor() error = %v", err)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	path := writeConfig(t, CreateDefaultConfig("/srv/data"))
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() of the default config error = %v", err)
	}
	if cfg.Engine.NullOrdering != "last" || cfg.Catalog.DataDir != "/srv/data" {
		t.Errorf("default config = %+v", cfg)
	}
}
