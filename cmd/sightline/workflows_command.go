package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sightline/internal/workflow"
)

func newWorkflowsCommand(ctx *commandContext) *cobra.Command {
	workflowsCmd := &cobra.Command{
		Use:   "workflows",
		Short: "Inspect workflow definitions",
	}
	workflowsCmd.AddCommand(newWorkflowsListCommand(ctx))
	workflowsCmd.AddCommand(newWorkflowsShowCommand(ctx))
	workflowsCmd.AddCommand(newWorkflowsValidateCommand())
	return workflowsCmd
}

func newWorkflowsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			defs, err := workflow.List(cfg.Paths.WorkflowDir)
			if err != nil {
				return err
			}
			if len(defs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no workflows under %s\n", cfg.Paths.WorkflowDir)
				return nil
			}
			rows := make([][]string, 0, len(defs))
			for _, def := range defs {
				rows = append(rows, []string{
					def.Name,
					def.Description,
					strconv.Itoa(len(def.Steps)),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Description", "Steps"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newWorkflowsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show one workflow step by step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			def, err := workflow.LoadByName(cfg.Paths.WorkflowDir, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", def.Name)
			if def.Description != "" {
				fmt.Fprintf(out, "%s\n", def.Description)
			}
			for i, step := range def.Steps {
				fmt.Fprintf(out, "\nstep %d: %s\n", i+1, step.Title)
				if step.Instructions != "" {
					fmt.Fprintf(out, "  %s\n", step.Instructions)
				}
				if reqs := requirementSummary(step); reqs != "" {
					fmt.Fprintf(out, "  requires: %s\n", reqs)
				}
				for _, cb := range step.Checkboxes {
					fmt.Fprintf(out, "  [ ] %s\n", cb.ID)
				}
			}
			return nil
		},
	}
}

func newWorkflowsValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate <file>",
		Short:       "Validate a workflow definition file",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := workflow.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d steps)\n", def.Name, len(def.Steps))
			return nil
		},
	}
}

func requirementSummary(step workflow.Step) string {
	var reqs []string
	if step.RequirePhoto {
		reqs = append(reqs, "photo")
	}
	if step.RequireAnnotations {
		reqs = append(reqs, "annotations")
	}
	if step.RequireBarcodeScan {
		reqs = append(reqs, "barcode scan")
	}
	if step.RequirePassFail {
		reqs = append(reqs, "pass/fail mark")
	}
	return strings.Join(reqs, ", ")
}
