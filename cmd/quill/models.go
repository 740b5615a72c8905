package main

import (
	"fmt"

	"github.com/sandevgo/quill/internal/service/ui"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:          "models [provider]",
	Short:        "List the models a provider offers",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		app, err := NewApp(ctx)
		if err != nil {
			return err
		}
		defer app.DB.Close()

		provider, current := app.Selection.Current()
		if len(args) == 1 {
			provider = args[0]
		}

		models, err := app.Resolver.Models(ctx, provider)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.TitleStyle.Render(provider))
		for _, m := range models {
			line := m.ID
			if m.ContextLength > 0 {
				line += ui.DescStyle.Render(fmt.Sprintf("  %dk", m.ContextLength/1000))
			}
			if m.ID == current {
				line = ui.UsageStyle.Render("* ") + line
			} else {
				line = "  " + line
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
