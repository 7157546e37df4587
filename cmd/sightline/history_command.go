package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sightline/internal/history"
	"sightline/internal/session"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Browse archived sessions",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var (
		serialFlag   string
		modeFlag     string
		workflowFlag string
		limitFlag    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			hist, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer hist.Close()

			records, err := hist.List(cmd.Context(), history.Filter{
				SerialNumber: serialFlag,
				Mode:         session.Mode(modeFlag),
				WorkflowName: workflowFlag,
				Limit:        limitFlag,
			})
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no archived sessions")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.SessionID,
					rec.SerialNumber,
					string(rec.Mode),
					rec.WorkflowName,
					string(rec.Outcome),
					fmt.Sprintf("%d/%d", rec.StepsPassed, rec.StepsTotal),
					formatAge(rec.ArchivedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Serial", "Mode", "Workflow", "Outcome", "Passed", "Archived"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&serialFlag, "serial", "", "Filter by serial number")
	cmd.Flags().StringVar(&modeFlag, "mode", "", "Filter by mode (capture, qc, maintenance)")
	cmd.Flags().StringVar(&workflowFlag, "workflow", "", "Filter by workflow name")
	cmd.Flags().IntVar(&limitFlag, "limit", 0, "Maximum rows to show")
	return cmd
}
