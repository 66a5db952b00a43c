package main

import (
	"github.com/spf13/cobra"

	"downsort/internal/daemonrun"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the downloads directory in the foreground",
		Long: "Watch the configured directory and move each new file into its category folder\n" +
			"once its size stops changing. Runs until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, ctx)
		},
	}
}

func runWatch(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: ctx.logLevel()})
}
