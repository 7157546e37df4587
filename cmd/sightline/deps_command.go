package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sightline/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tools and workstation resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.Check(cfg)

			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				availability := "ok"
				if !s.Available {
					availability = "missing"
					if s.Optional {
						availability = "missing (optional)"
					}
				}
				rows = append(rows, []string{s.Name, s.Command, availability, s.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Dependency", "Command", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))

			if !deps.Healthy(statuses) {
				return fmt.Errorf("required dependencies are missing")
			}
			return nil
		},
	}
}
