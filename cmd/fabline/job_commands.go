package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fabline/internal/api"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect and manage job orders",
	}

	jobCmd.AddCommand(newJobListCommand(ctx))
	jobCmd.AddCommand(newJobShowCommand(ctx))
	jobCmd.AddCommand(newJobCreateCommand(ctx))
	jobCmd.AddCommand(newJobStatsCommand(ctx))

	return jobCmd
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var stageFilter string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List job orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(cmd.Context(), func(svc jobAPI) error {
				jobs, err := svc.List(cmd.Context(), stageFilter)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.JobListResponse{Jobs: jobs})
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Code", "Customer", "Qty", "Stage", "QC", "Batches", "Updated"},
					buildJobRows(jobs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&stageFilter, "stage", "s", "", "Filter by current stage")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var withHistory bool

	cmd := &cobra.Command{
		Use:   "show <jobID>",
		Short: "Show one job with its batches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(cmd.Context(), func(svc jobAPI) error {
				view, err := svc.Describe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if view == nil {
					return fmt.Errorf("job %s not found", args[0])
				}
				if jsonOut {
					return writeJSON(cmd, api.JobResponse{Job: *view})
				}
				printJobDetails(cmd, view, withHistory)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	cmd.Flags().BoolVar(&withHistory, "history", false, "Include the audit timeline")
	return cmd
}

func printJobDetails(cmd *cobra.Command, view *api.JobView, withHistory bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s (%s)\n", view.Code, view.Customer, view.ID)
	if view.Description != "" {
		fmt.Fprintf(out, "  %s\n", view.Description)
	}
	fmt.Fprintf(out, "  Stage: %s   QC: %s   Quantity: %d\n",
		displayName(view.CurrentStage), displayName(view.QCStatus), view.TotalQuantity)
	if view.DispatchStatus != "" {
		fmt.Fprintf(out, "  Dispatch: %s\n", displayName(view.DispatchStatus))
	}
	if view.RejectionReason != "" {
		fmt.Fprintf(out, "  Rejection: %s\n", view.RejectionReason)
	}
	if len(view.SkippedStages) > 0 {
		names := make([]string, 0, len(view.SkippedStages))
		for _, stage := range view.SkippedStages {
			names = append(names, displayName(stage))
		}
		fmt.Fprintf(out, "  Skipped: %v\n", names)
	}

	if len(view.Batches) > 0 {
		fmt.Fprintln(out)
		table := renderTable(
			[]string{"Batch", "Stage", "Qty", "Status", "Reprocessed", "Notes"},
			buildBatchRows(view.Batches),
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
		)
		fmt.Fprintln(out, table)
	}

	if withHistory && len(view.History) > 0 {
		fmt.Fprintln(out)
		table := renderTable(
			[]string{"When", "Action", "Stage", "Batch", "User", "Details"},
			buildHistoryRows(view.History),
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
		)
		fmt.Fprintln(out, table)
	}
}

func newJobCreateCommand(ctx *commandContext) *cobra.Command {
	var req api.CreateJobRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new job order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(cmd.Context(), func(svc jobAPI) error {
				view, err := svc.Create(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created job %s (%s) for %s, quantity %d\n",
					view.Code, view.ID, view.Customer, view.TotalQuantity)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.ID, "id", "", "Job id (defaults to the lowercased code)")
	cmd.Flags().StringVar(&req.Code, "code", "", "Order code")
	cmd.Flags().StringVar(&req.Customer, "customer", "", "Customer name")
	cmd.Flags().StringVar(&req.Description, "description", "", "Order description")
	cmd.Flags().IntVar(&req.Quantity, "qty", 0, "Total quantity")
	cmd.Flags().StringVarP(&req.User, "user", "u", "", "Acting user")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("qty")
	return cmd
}

func newJobStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show job counts per stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(cmd.Context(), func(svc jobAPI) error {
				counts, err := svc.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.StatsResponse{Counts: counts})
				}
				rows := buildStatsRows(counts)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
					return nil
				}
				table := renderTable([]string{"Stage", "Jobs"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}
