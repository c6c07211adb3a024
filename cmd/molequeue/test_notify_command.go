package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"molequeue/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification via the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				if !resp.Sent {
					return fmt.Errorf("notification failed: %s", resp.Message)
				}
				fmt.Fprintln(stdout, resp.Message)
				return nil
			})
		},
	}
}
