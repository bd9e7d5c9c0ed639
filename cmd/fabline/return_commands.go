package main

import (
	"github.com/spf13/cobra"

	"fabline/internal/api"
)

func newReturnCommand(ctx *commandContext) *cobra.Command {
	returnCmd := &cobra.Command{
		Use:   "return",
		Short: "Handle customer returns and scrap",
	}

	returnCmd.AddCommand(newReturnRecordCommand(ctx))
	returnCmd.AddCommand(newReturnReprocessCommand(ctx))
	returnCmd.AddCommand(newScrapCommand(ctx))

	return returnCmd
}

func newReturnRecordCommand(ctx *commandContext) *cobra.Command {
	var user string
	var qty int
	var origin string
	var reason string

	cmd := &cobra.Command{
		Use:   "record <jobID> <batchID>",
		Short: "Record a customer return against a dispatched batch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(ctx, cmd, args[0], api.TransitionRequest{
				Action:   api.ActionCustomerReturn,
				User:     user,
				BatchID:  args[1],
				Quantity: qty,
				Stage:    origin,
				Reason:   reason,
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Acting user")
	cmd.Flags().IntVar(&qty, "qty", 0, "Returned quantity")
	cmd.Flags().StringVar(&origin, "origin", "", "Stage the defect traces back to")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Return reason")
	_ = cmd.MarkFlagRequired("qty")
	_ = cmd.MarkFlagRequired("origin")
	return cmd
}

func newReturnReprocessCommand(ctx *commandContext) *cobra.Command {
	var user string
	var stage string

	cmd := &cobra.Command{
		Use:   "reprocess <jobID> <batchID>",
		Short: "Route a returned batch back into production",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(ctx, cmd, args[0], api.TransitionRequest{
				Action:  api.ActionReprocessReturn,
				User:    user,
				BatchID: args[1],
				Stage:   stage,
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Acting user")
	cmd.Flags().StringVar(&stage, "stage", "", "Stage to restart the batch at")
	_ = cmd.MarkFlagRequired("stage")
	return cmd
}

func newScrapCommand(ctx *commandContext) *cobra.Command {
	var user string
	var reason string

	cmd := &cobra.Command{
		Use:   "scrap <jobID> <batchID>",
		Short: "Write a batch off as scrap",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(ctx, cmd, args[0], api.TransitionRequest{
				Action:  api.ActionScrapBatch,
				User:    user,
				BatchID: args[1],
				Reason:  reason,
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Acting user")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Scrap reason")
	return cmd
}
