// planexec executes logical query plans over parquet files
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vegasq/planexec/internal/config"
	"github.com/vegasq/planexec/internal/logger"
	"github.com/vegasq/planexec/reader"
)

var (
	version   = "0.1.0"
	buildDate = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "planexec",
		Short: "planexec - execute logical query plans over parquet files",
		Long: `planexec evaluates logical query plans, written as YAML or JSON documents,
against parquet files with SQL NULL semantics.

Run a plan over the parquet files of a directory:
  planexec run report.yaml --data-dir ./data --nulls last

Show the operator tree of a plan:
  planexec explain report.yaml

Describe a parquet file:
  planexec schema data/employees.parquet`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file path")
	root.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newRunCmd(g),
		newExplainCmd(),
		newSchemaCmd(),
		newTablesCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "planexec %s (built %s)\n", version, buildDate)
			},
		},
	)
	return root
}

// environment is the configuration, logger and catalog a command runs with
type environment struct {
	cfg     *config.Config
	log     *logger.Logger
	catalog *reader.Catalog
}

// loadEnvironment loads configuration with the command's flags applied on top.
// extraTables extend the configured table map.
func loadEnvironment(cmd *cobra.Command, g *globalOptions, extraTables map[string]string) (*environment, error) {
	cfg, err := config.Load(g.configPath, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	tables := make(map[string]string, len(cfg.Catalog.Tables)+len(extraTables))
	for name, path := range cfg.Catalog.Tables {
		tables[name] = path
	}
	for name, path := range extraTables {
		tables[name] = path
	}

	return &environment{
		cfg:     cfg,
		log:     log,
		catalog: reader.NewCatalog(cfg.Catalog.DataDir, tables, log.Zap()),
	}, nil
}
