package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vegasq/planexec/planfile"
	"github.com/vegasq/planexec/query"
)

func newExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <plan>",
		Short: "Print the operator tree of a plan file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := planfile.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if plan.Name != "" {
				fmt.Fprintf(out, "-- %s\n", plan.Name)
			}
			_, err = fmt.Fprint(out, query.Explain(plan.Root))
			return err
		},
	}
}
