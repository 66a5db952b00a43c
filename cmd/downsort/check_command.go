package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"downsort/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the watched directory and destinations are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			printer := newCheckPrinter(cmd.OutOrStdout())

			printer.section("Configuration")
			source := ctx.configPath
			if !ctx.configSeen {
				source += " (not found, using defaults)"
			}
			printer.line(outcomeNote, "Config file", source)
			printer.line(outcomeNote, "History journal", yesNo(cfg.History.Enabled))

			printer.section("Directories")
			results := preflight.RunAll(cfg)
			for _, result := range results {
				outcome := outcomePass
				if !result.Passed {
					outcome = outcomeFail
				}
				printer.line(outcome, result.Name, result.Detail)
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}
			return nil
		},
	}
}
