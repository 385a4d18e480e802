package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/vegasq/planexec/output"
	"github.com/vegasq/planexec/planfile"
	"github.com/vegasq/planexec/query"
)

type runOptions struct {
	tables  map[string]string
	timeout time.Duration
	stream  bool
}

func newRunCmd(g *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <plan>",
		Short: "Execute a plan file and print its result",
		Long: `Execute a YAML or JSON plan file and print the result relation.

Table names resolve through the configured table map, then to <data-dir>/<name>.parquet.
A NULL ordering is required, from --nulls, the config file or PLANEXEC_ENGINE_NULL_ORDERING.

By default the whole result is computed before anything is printed, so a failing
query prints nothing. --stream writes rows as they are produced.`,
		Example: `  planexec run report.yaml --nulls last
  planexec run report.yaml --nulls first -f csv --table events='logs/*.parquet'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, g, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.String("nulls", "", "NULL placement in sorts: first or last")
	f.String("data-dir", ".", "directory holding <table>.parquet files")
	f.StringP("format", "f", "table", "output format: json, csv, table")
	f.Int("max-width", 50, "truncate table cells wider than this (0 = no limit)")
	f.Bool("parallel", false, "evaluate independent inputs concurrently")
	f.Int("max-recursion", query.DefaultMaxRecursion, "iteration bound for recursive CTEs")
	f.StringToStringVarP(&opts.tables, "table", "t", nil, "map a table name to a parquet path or glob (name=path)")
	f.DurationVar(&opts.timeout, "timeout", 0, "cancel the query after this long (0 = no timeout)")
	f.BoolVar(&opts.stream, "stream", false, "write rows as they are produced")
	return cmd
}

func runPlan(cmd *cobra.Command, g *globalOptions, opts *runOptions, path string) error {
	plan, err := planfile.Load(path)
	if err != nil {
		return err
	}

	env, err := loadEnvironment(cmd, g, opts.tables)
	if err != nil {
		return err
	}
	defer func() { _ = env.log.Sync() }()

	engineOpts, err := env.cfg.EngineOptions(env.log.Zap())
	if err != nil {
		return err
	}
	exec, err := query.NewExecutor(env.catalog, engineOpts)
	if err != nil {
		return err
	}
	formatter, err := output.New(env.cfg.Output.Format, cmd.OutOrStdout(), env.cfg.Output.MaxWidth)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	env.log.Debug("running plan", "path", path, "name", plan.Name, "stream", opts.stream)
	started := time.Now()

	if !opts.stream {
		rel, err := exec.Execute(ctx, plan.Root)
		if err != nil {
			return fmt.Errorf("failed to execute plan: %w", err)
		}
		env.log.Info("plan finished", "path", path, "rows", rel.Len(), "elapsed", time.Since(started))
		return output.WriteRelation(formatter, rel)
	}

	it, err := exec.Stream(ctx, plan.Root)
	if err != nil {
		return fmt.Errorf("failed to execute plan: %w", err)
	}
	defer func() { _ = it.Close() }()
	if err := formatter.Format(it); err != nil {
		return fmt.Errorf("failed to execute plan: %w", err)
	}
	env.log.Info("plan finished", "path", path, "elapsed", time.Since(started))
	return nil
}
