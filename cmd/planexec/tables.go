package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTablesCmd(g *globalOptions) *cobra.Command {
	var tables map[string]string
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the tables a plan can scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(cmd, g, tables)
			if err != nil {
				return err
			}
			defer func() { _ = env.log.Sync() }()

			names, err := env.catalog.Names()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().String("data-dir", ".", "directory holding <table>.parquet files")
	cmd.Flags().StringToStringVarP(&tables, "table", "t", nil, "map a table name to a parquet path or glob (name=path)")
	return cmd
}
