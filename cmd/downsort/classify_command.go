package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"downsort/internal/classify"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <name>...",
		Short: "Show which category each file name would be sorted into",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			table, err := classify.NewTable(cfg.Categories)
			if err != nil {
				return fmt.Errorf("build category table: %w", err)
			}
			rows := make([][]string, 0, len(args))
			for _, name := range args {
				category := table.Classify(name)
				rows = append(rows, []string{name, category, table.Destination(category)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(classifyColumns, rows, ""))
			return nil
		},
	}
}

func newCategoriesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List configured categories, extensions, and destinations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			table, err := classify.NewTable(cfg.Categories)
			if err != nil {
				return fmt.Errorf("build category table: %w", err)
			}
			fallback := table.Fallback()
			cats := table.Categories()
			rows := make([][]string, 0, len(cats))
			for _, cat := range cats {
				extensions := strings.Join(cat.Extensions, ", ")
				if cat.Name == fallback {
					extensions = "(everything else)"
				}
				rows = append(rows, []string{cat.Name, extensions, cat.Destination})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(categoryColumns, rows, ""))
			return nil
		},
	}
}
