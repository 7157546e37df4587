package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sightline/internal/history"
	"sightline/internal/session/snapshot"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage saved session snapshots",
	}
	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsSweepCommand(ctx))
	sessionsCmd.AddCommand(newSessionsDiscardCommand(ctx))
	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List resumable sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openSnapshotStore()
			if err != nil {
				return err
			}
			entries, err := store.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no saved sessions")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				step := "-"
				if e.WorkflowName != "" {
					step = strconv.Itoa(e.CurrentStep + 1)
				}
				rows = append(rows, []string{
					e.SessionID,
					e.SerialNumber,
					string(e.Mode),
					e.WorkflowName,
					step,
					formatAge(e.UpdatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Serial", "Mode", "Workflow", "Step", "Last Activity"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newSessionsSweepCommand(ctx *commandContext) *cobra.Command {
	var daysFlag int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete snapshots older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openSnapshotStore()
			if err != nil {
				return err
			}
			days := daysFlag
			if days <= 0 {
				days = cfg.Persistence.RetentionDays
			}
			removed, err := store.Sweep(snapshot.SweepOptions{
				RetentionDays: days,
				SweepMedia:    cfg.Persistence.SweepMedia,
			}, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale session(s)\n", len(removed))
			return nil
		},
	}
	cmd.Flags().IntVar(&daysFlag, "days", 0, "Retention window in days (defaults to the configured value)")
	return cmd
}

func newSessionsDiscardCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "discard <session-id>",
		Short: "Archive a saved session as discarded and delete its snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openSnapshotStore()
			if err != nil {
				return err
			}
			state, err := store.Load(args[0])
			if err != nil {
				return err
			}
			hist, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer hist.Close()
			if _, err := hist.Archive(cmd.Context(), state, nil, history.OutcomeDiscarded, ""); err != nil {
				return err
			}
			if err := store.Delete(state.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "discarded %s\n", state.ID)
			return nil
		},
	}
}
