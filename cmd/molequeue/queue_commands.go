package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"molequeue/internal/ipc"
)

func newQueuesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "queues",
		Short: "List the queues served by the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ListQueues()
				if err != nil {
					return err
				}
				if len(resp.Queues) == 0 {
					fmt.Fprintln(stdout, "No queues configured")
					return nil
				}
				rows := make([][]string, 0, len(resp.Queues))
				for _, name := range resp.Queues {
					rows = append(rows, []string{name})
				}
				fmt.Fprintln(stdout, renderTable([]string{"Queue"}, rows))
				return nil
			})
		},
	}
}
