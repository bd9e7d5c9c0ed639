package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fabline/internal/api"
)

func newStageCommand(ctx *commandContext) *cobra.Command {
	stageCmd := &cobra.Command{
		Use:   "stage",
		Short: "Drive a job's current stage",
	}

	stageCmd.AddCommand(newStageActionCommand(ctx, "start", "Start work on the current stage", api.ActionStart, false))
	stageCmd.AddCommand(newStageActionCommand(ctx, "pause", "Pause work on the current stage", api.ActionPause, false))
	stageCmd.AddCommand(newStageActionCommand(ctx, "complete", "Complete the current stage", api.ActionComplete, false))
	stageCmd.AddCommand(newStageActionCommand(ctx, "skip", "Skip the current stage", api.ActionSkip, true))
	stageCmd.AddCommand(newStageActionCommand(ctx, "approve", "Approve QC and advance", api.ActionQCApprove, false))
	stageCmd.AddCommand(newStageActionCommand(ctx, "reject", "Reject QC and hold the stage", api.ActionQCReject, true))

	return stageCmd
}

func newStageActionCommand(ctx *commandContext, use, short, action string, withReason bool) *cobra.Command {
	var user string
	var reason string

	cmd := &cobra.Command{
		Use:   use + " <jobID>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(ctx, cmd, args[0], api.TransitionRequest{
				Action: action,
				User:   user,
				Reason: reason,
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Acting user")
	if withReason {
		cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason recorded in the audit trail")
	}
	return cmd
}

// runTransition applies one transition and reports the outcome, flagging
// refused transitions instead of failing.
func runTransition(ctx *commandContext, cmd *cobra.Command, jobID string, req api.TransitionRequest) error {
	return ctx.withJobs(cmd.Context(), func(svc jobAPI) error {
		resp, err := svc.Transition(cmd.Context(), jobID, req)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !resp.Applied {
			fmt.Fprintf(out, "No change: %s was refused for job %s (stage %s, QC %s)\n",
				req.Action, jobID, displayName(resp.Job.CurrentStage), displayName(resp.Job.QCStatus))
			return nil
		}
		fmt.Fprintf(out, "Applied %s to job %s; now at %s (QC %s)\n",
			req.Action, jobID, displayName(resp.Job.CurrentStage), displayName(resp.Job.QCStatus))
		return nil
	})
}
