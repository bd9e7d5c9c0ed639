package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fabline/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test push notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if client, err := ctx.client(); err == nil {
				if sent, message, err := client.TestNotification(cmd.Context()); err == nil {
					if sent {
						fmt.Fprintln(out, "Test notification sent via daemon")
					} else {
						fmt.Fprintln(out, message)
					}
					return nil
				}
			}

			// Daemon not reachable; send directly.
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			notifier := notifications.NewService(cfg)
			if err := notifier.TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(out, "Test notification sent")
			return nil
		},
	}
}
