package main

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/spf13/cobra"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var tail int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent job transitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			resp, err := client.EventsTail(cmd.Context(), tail)
			if err != nil {
				return err
			}
			if jsonOut && !follow {
				return writeJSON(cmd, resp)
			}
			for _, evt := range resp.Events {
				fmt.Fprintln(out, formatEvent(evt))
			}
			if !follow {
				if len(resp.Events) == 0 {
					fmt.Fprintln(out, "No recent events")
				}
				return nil
			}

			cursor := resp.Next
			for {
				batch, err := client.Events(cmd.Context(), cursor, 0, true)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					// Idle long-polls time out; just poll again.
					var netErr net.Error
					if errors.As(err, &netErr) && netErr.Timeout() {
						continue
					}
					return err
				}
				for _, evt := range batch.Events {
					fmt.Fprintln(out, formatEvent(evt))
				}
				cursor = batch.Next
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new events")
	cmd.Flags().IntVarP(&tail, "tail", "n", 20, "Number of recent events to show first")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of formatted lines")
	return cmd
}
