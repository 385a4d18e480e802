// Package config handles configuration loading and validation for planexec
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vegasq/planexec/query"
)

// Config holds all configuration for planexec
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Output  OutputConfig  `mapstructure:"output"`
	Log     LogConfig     `mapstructure:"log"`
}

// EngineConfig holds executor settings
type EngineConfig struct {
	// NullOrdering is "first" or "last" and has no default
	NullOrdering        string `mapstructure:"null_ordering"`
	MaxRecursion        int    `mapstructure:"max_recursion"`
	MaxRecursiveRows    int    `mapstructure:"max_recursive_rows"`
	MaxMaterializedRows int    `mapstructure:"max_materialized_rows"`
	BatchSize           int    `mapstructure:"batch_size"`
	Parallel            bool   `mapstructure:"parallel"`
}

// CatalogConfig locates base tables
type CatalogConfig struct {
	DataDir string `mapstructure:"data_dir"`
	// Tables maps table names to parquet paths or glob patterns
	Tables map[string]string `mapstructure:"tables"`
}

// OutputConfig selects the result format
type OutputConfig struct {
	Format   string `mapstructure:"format"`
	MaxWidth int    `mapstructure:"max_width"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// FlagKeys maps command line flag names onto configuration keys.
// Flags that are present and set override the file and the environment.
var FlagKeys = map[string]string{
	"nulls":         "engine.null_ordering",
	"max-recursion": "engine.max_recursion",
	"parallel":      "engine.parallel",
	"data-dir":      "catalog.data_dir",
	"format":        "output.format",
	"max-width":     "output.max_width",
	"log-level":     "log.level",
}

func defaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxRecursion:     query.DefaultMaxRecursion,
			MaxRecursiveRows: query.DefaultMaxRecursiveRows,
			BatchSize:        query.DefaultBatchSize,
		},
		Catalog: CatalogConfig{
			DataDir: ".",
		},
		Output: OutputConfig{
			Format:   "table",
			MaxWidth: 50,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads configuration from defaults, an optional file, PLANEXEC_* environment
// variables and flags, in increasing precedence. flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	cfg := defaultConfig()
	v.SetDefault("engine.null_ordering", cfg.Engine.NullOrdering)
	v.SetDefault("engine.max_recursion", cfg.Engine.MaxRecursion)
	v.SetDefault("engine.max_recursive_rows", cfg.Engine.MaxRecursiveRows)
	v.SetDefault("engine.max_materialized_rows", cfg.Engine.MaxMaterializedRows)
	v.SetDefault("engine.batch_size", cfg.Engine.BatchSize)
	v.SetDefault("engine.parallel", cfg.Engine.Parallel)
	v.SetDefault("catalog.data_dir", cfg.Catalog.DataDir)
	v.SetDefault("output.format", cfg.Output.Format)
	v.SetDefault("output.max_width", cfg.Output.MaxWidth)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.output", cfg.Log.Output)

	v.SetEnvPrefix("PLANEXEC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("planexec")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.planexec")

		// No config file is fine; defaults apply
		_ = v.ReadInConfig()
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that configuration values are sensible. A missing null ordering is
// accepted here and rejected by EngineOptions, so commands that never execute a plan
// do not need one.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Engine.NullOrdering) != "" {
		if _, err := c.nullOrdering(); err != nil {
			return err
		}
	}

	limits := []struct {
		name  string
		value int
	}{
		{"engine.max_recursion", c.Engine.MaxRecursion},
		{"engine.max_recursive_rows", c.Engine.MaxRecursiveRows},
		{"engine.max_materialized_rows", c.Engine.MaxMaterializedRows},
		{"engine.batch_size", c.Engine.BatchSize},
		{"output.max_width", c.Output.MaxWidth},
	}
	for _, l := range limits {
		if l.value < 0 {
			return fmt.Errorf("%s must not be negative: %d", l.name, l.value)
		}
	}

	validFormats := map[string]bool{"json": true, "jsonl": true, "csv": true, "table": true}
	if !validFormats[strings.ToLower(c.Output.Format)] {
		return fmt.Errorf("invalid output format: %s (must be json, csv or table)", c.Output.Format)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}
	return nil
}

func (c *Config) nullOrdering() (query.NullOrdering, error) {
	if strings.TrimSpace(c.Engine.NullOrdering) == "" {
		return query.NullsDefault, fmt.Errorf("engine.null_ordering is required (first or last)")
	}
	n, err := query.ParseNullOrdering(c.Engine.NullOrdering)
	if err != nil {
		return query.NullsDefault, fmt.Errorf("invalid engine.null_ordering: %w", err)
	}
	return n, nil
}

// EngineOptions converts the engine section into executor options.
// It fails when no null ordering is configured.
func (c *Config) EngineOptions(log *zap.Logger) (query.Options, error) {
	nulls, err := c.nullOrdering()
	if err != nil {
		return query.Options{}, err
	}
	return query.Options{
		NullOrdering:        nulls,
		MaxRecursion:        c.Engine.MaxRecursion,
		MaxRecursiveRows:    c.Engine.MaxRecursiveRows,
		MaxMaterializedRows: c.Engine.MaxMaterializedRows,
		BatchSize:           c.Engine.BatchSize,
		Parallel:            c.Engine.Parallel,
		Logger:              log,
	}, nil
}

// CreateDefaultConfig renders a commented configuration file
func CreateDefaultConfig(dataDir string) string {
	return fmt.Sprintf(`# planexec configuration

engine:
  null_ordering: last        # first or last (required)
  max_recursion: %d
  max_recursive_rows: %d
  max_materialized_rows: 0   # 0 is unbounded
  batch_size: %d
  parallel: false

catalog:
  data_dir: %s
  tables: {}                 # name: path or glob, relative to data_dir

output:
  format: table              # json, csv or table
  max_width: 50

log:
  level: warn                # debug, info, warn, error
  format: text               # text or json
  output: stderr             # stderr, stdout, or file path
`, query.DefaultMaxRecursion, query.DefaultMaxRecursiveRows, query.DefaultBatchSize, dataDir)
}
