package main

import (
	"github.com/spf13/cobra"

	"molequeue/internal/daemonrun"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the molequeue daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := daemonrun.Options{
				LogLevel:  logLevel,
				AskPolicy: newPromptPolicy(cmd.InOrStdin(), cmd.OutOrStdout()),
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override configured log level (debug, info, warn, error)")
	return cmd
}
