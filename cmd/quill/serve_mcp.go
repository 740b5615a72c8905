package main

import (
	"github.com/sandevgo/quill/internal/transport/mcpserver"
	"github.com/spf13/cobra"
)

var serveMCPCmd = &cobra.Command{
	Use:          "serve-mcp",
	Short:        "Serve the vault tools over MCP stdio",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol; logs stay on stderr.
		ctx, flushLog := setupLogger(cmd.Context())
		defer flushLog()

		app, err := NewApp(ctx)
		if err != nil {
			return err
		}
		defer app.DB.Close()

		return mcpserver.Serve(ctx, mcpserver.New(app.Tools))
	},
}

func init() {
	rootCmd.AddCommand(serveMCPCmd)
}
