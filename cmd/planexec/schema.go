package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vegasq/planexec/output"
	"github.com/vegasq/planexec/query"
	"github.com/vegasq/planexec/reader"
)

var schemaColumns = query.NewSchema(
	query.Column{Name: "name", Type: query.TypeText},
	query.Column{Name: "column", Type: query.TypeText},
	query.Column{Name: "engine_type", Type: query.TypeText},
	query.Column{Name: "physical_type", Type: query.TypeText},
	query.Column{Name: "logical_type", Type: query.TypeText, Nullable: true},
	query.Column{Name: "nullable", Type: query.TypeBool},
	query.Column{Name: "repeated", Type: query.TypeBool},
)

func newSchemaCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "schema <file.parquet>",
		Short: "Describe the columns of a parquet file",
		Long: `Describe the columns of a parquet file and the engine columns they are read as.
For a glob pattern the first matching file is described.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showSchema(cmd, args[0], format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: json, csv, table")
	return cmd
}

func showSchema(cmd *cobra.Command, pattern, format string) error {
	formatter, err := output.New(format, cmd.OutOrStdout(), 0)
	if err != nil {
		return err
	}

	path := pattern
	if strings.ContainsAny(pattern, "*?[") {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid glob pattern: %w", err)
		}
		if len(matches) == 0 {
			return fmt.Errorf("no files match pattern: %s", pattern)
		}
		path = matches[0]
		if len(matches) > 1 {
			fmt.Fprintf(cmd.ErrOrStderr(), "# Showing schema from: %s (%d files matched)\n", path, len(matches))
		}
	}

	infos, err := reader.ExtractSchemaInfo(path)
	if err != nil {
		return err
	}

	rows := make([]query.Row, len(infos))
	for i, info := range infos {
		logical := query.Null()
		if info.LogicalType != "" {
			logical = query.NewText(info.LogicalType)
		}
		rows[i] = query.Row{
			query.NewText(info.Name),
			query.NewText(info.Column),
			query.NewText(info.EngineType),
			query.NewText(info.PhysicalType),
			logical,
			query.NewBool(info.Nullable),
			query.NewBool(info.Repeated),
		}
	}
	return output.WriteRelation(formatter, query.NewRelation(schemaColumns, rows))
}
