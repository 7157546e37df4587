package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sightline/internal/services"
	"sightline/internal/session"
	"sightline/internal/workflow"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Build report documents",
	}
	reportCmd.AddCommand(newReportBuildCommand(ctx))
	return reportCmd
}

func newReportBuildCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "build <session-id>",
		Short: "Build the report document for a saved or archived session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			state, err := loadSessionState(ctx, args[0])
			if err != nil {
				return err
			}
			var def *workflow.Definition
			if state.WorkflowName != "" {
				def, err = workflow.LoadByName(cfg.Paths.WorkflowDir, state.WorkflowName)
				if err != nil {
					return fmt.Errorf("load workflow %q: %w", state.WorkflowName, err)
				}
			}

			path, err := writeReport(cfg.Paths.ReportDir, state, def, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", path)
			return nil
		},
	}
}

// loadSessionState checks the live snapshots first and falls back to the
// archive.
func loadSessionState(cmdCtx *commandContext, sessionID string) (*session.State, error) {
	store, err := cmdCtx.openSnapshotStore()
	if err != nil {
		return nil, err
	}
	state, err := store.Load(sessionID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, services.ErrNotFound) {
		return nil, err
	}

	hist, histErr := cmdCtx.openHistory()
	if histErr != nil {
		return nil, histErr
	}
	defer hist.Close()
	_, archived, archErr := hist.Get(context.Background(), sessionID)
	if archErr != nil {
		return nil, archErr
	}
	return archived, nil
}
