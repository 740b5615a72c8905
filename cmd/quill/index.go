package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:          "index",
	Short:        "Index the document vault",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		app, err := NewApp(ctx)
		if err != nil {
			return err
		}
		defer app.DB.Close()

		stats, err := app.Indexer.Reindex(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d, unchanged %d, removed %d, failed %d\n",
			stats.Indexed, stats.Unchanged, stats.Removed, stats.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
