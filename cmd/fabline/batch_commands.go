package main

import (
	"github.com/spf13/cobra"

	"fabline/internal/api"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Manage production batches",
	}

	batchCmd.AddCommand(newBatchCreateCommand(ctx))
	batchCmd.AddCommand(newBatchSplitCommand(ctx))
	batchCmd.AddCommand(newBatchMoveCommand(ctx))
	batchCmd.AddCommand(newBatchStatusCommand(ctx))
	batchCmd.AddCommand(newBatchReprocessCommand(ctx))

	return batchCmd
}

func newBatchCreateCommand(ctx *commandContext) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "create <jobID>",
		Short: "Create the initial batch covering the full quantity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(ctx, cmd, args[0], api.TransitionRequest{
				Action: api.ActionCreateBatch,
				User:   user,
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Acting user")
	return cmd
}

func newBatchSplitCommand(ctx *commandContext) *cobra.Command {
	var user string
	var qty int

	cmd := &cobra.Command{
		Use:   "split <jobID> <batchID>",
		Short: "Split a finished quantity out of a batch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(ctx, cmd, args[0], api.TransitionRequest{
				Action:   api.ActionSplitBatch,
				User:     user,
				BatchID:  args[1],
				Quantity: qty,
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Acting user")
	cmd.Flags().IntVar(&qty, "qty", 0, "Quantity finished so far")
	_ = cmd.MarkFlagRequired("qty")
	return cmd
}

func newBatchMoveCommand(ctx *commandContext) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "move <jobID> <batchID>",
		Short: "Move a batch to the next stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(ctx, cmd, args[0], api.TransitionRequest{
				Action:  api.ActionMoveBatch,
				User:    user,
				BatchID: args[1],
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Acting user")
	return cmd
}

func newBatchStatusCommand(ctx *commandContext) *cobra.Command {
	var user string
	var status string
	var reason string

	cmd := &cobra.Command{
		Use:   "status <jobID> <batchID>",
		Short: "Set a batch's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(ctx, cmd, args[0], api.TransitionRequest{
				Action:  api.ActionBatchStatus,
				User:    user,
				BatchID: args[1],
				Status:  status,
				Reason:  reason,
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Acting user")
	cmd.Flags().StringVar(&status, "status", "", "New batch status (in_progress, completed, qc_pending, rework_pending, ...)")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason recorded in the audit trail")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func newBatchReprocessCommand(ctx *commandContext) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "reprocess <jobID> <batchID>",
		Short: "Send a rework-pending batch through its stage again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(ctx, cmd, args[0], api.TransitionRequest{
				Action:  api.ActionReprocessBatch,
				User:    user,
				BatchID: args[1],
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Acting user")
	return cmd
}
