package main

import (
	"github.com/spf13/cobra"

	"fabline/internal/api"
)

func newDispatchCommand(ctx *commandContext) *cobra.Command {
	dispatchCmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Walk a completed job through dispatch and closure",
	}

	dispatchCmd.AddCommand(newDispatchActionCommand(ctx, "ready", "Mark a completed job ready for dispatch", api.ActionDispatchReady))
	dispatchCmd.AddCommand(newDispatchActionCommand(ctx, "ship", "Record the dispatch", api.ActionDispatch))
	dispatchCmd.AddCommand(newDispatchActionCommand(ctx, "invoice", "Record invoice generation", api.ActionInvoice))
	dispatchCmd.AddCommand(newDispatchActionCommand(ctx, "payment", "Record payment receipt", api.ActionPayment))
	dispatchCmd.AddCommand(newDispatchActionCommand(ctx, "close", "Close the order", api.ActionClose))

	return dispatchCmd
}

func newDispatchActionCommand(ctx *commandContext, use, short, action string) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   use + " <jobID>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(ctx, cmd, args[0], api.TransitionRequest{
				Action: action,
				User:   user,
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Acting user")
	return cmd
}
