package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and pipeline status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			status, err := client.Status(cmd.Context())
			if err != nil {
				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "not reachable; start it with `fablined`", colorize))
				fmt.Fprintln(stdout)
				return ctx.printLocalStats(cmd, colorize)
			}

			if jsonOut {
				return writeJSON(cmd, status)
			}

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			running := statusOK
			detail := fmt.Sprintf("pid %d", status.PID)
			if !status.Running {
				running = statusWarn
				detail = "stopped"
			}
			fmt.Fprintln(stdout, renderStatusLine("Daemon", running, detail, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, status.DBPath, colorize))

			workflowKind := statusOK
			workflowDetail := "reminder loop running"
			if !status.Workflow.Running {
				workflowKind = statusWarn
				workflowDetail = "reminder loop stopped"
			}
			if status.Workflow.LastError != "" {
				workflowKind = statusError
				workflowDetail = status.Workflow.LastError
			}
			fmt.Fprintln(stdout, renderStatusLine("Workflow", workflowKind, workflowDetail, colorize))
			if status.Workflow.LastPoll != "" {
				fmt.Fprintln(stdout, renderStatusLine("Last poll", statusInfo, shortTimestamp(status.Workflow.LastPoll), colorize))
			}
			fmt.Fprintf(stdout, "%sJobs: %d total, %d active, %d completed, %d scrapped batches\n",
				statusIndent, status.Workflow.Total, status.Workflow.Active, status.Workflow.Completed, status.Workflow.Scrapped)
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Pipeline", colorize) {
				fmt.Fprintln(stdout, line)
			}
			counts, err := client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			rows := buildStatsRows(counts)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "No jobs found")
				return nil
			}
			table := renderTable([]string{"Stage", "Jobs"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(stdout, table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of formatted output")
	return cmd
}

// printLocalStats renders stage counts straight from the store when the
// daemon is down.
func (c *commandContext) printLocalStats(cmd *cobra.Command, colorize bool) error {
	return c.withJobs(cmd.Context(), func(svc jobAPI) error {
		counts, err := svc.Stats(cmd.Context())
		if err != nil {
			return err
		}
		stdout := cmd.OutOrStdout()
		for _, line := range renderSectionHeader("Pipeline", colorize) {
			fmt.Fprintln(stdout, line)
		}
		rows := buildStatsRows(counts)
		if len(rows) == 0 {
			fmt.Fprintln(stdout, "No jobs found")
			return nil
		}
		table := renderTable([]string{"Stage", "Jobs"}, rows, []columnAlignment{alignLeft, alignRight})
		fmt.Fprintln(stdout, table)
		return nil
	})
}
