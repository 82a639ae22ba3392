package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lectern/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Push a test message to the configured ntfy topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				line := "Notification not sent"
				if resp != nil {
					switch {
					case resp.Message != "":
						line = resp.Message
					case resp.Sent:
						line = "Test notification sent"
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
				if err != nil {
					return fmt.Errorf("test notification: %w", err)
				}
				return nil
			})
		},
	}
}
