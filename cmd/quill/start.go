package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/sandevgo/quill/internal/transport/cli"
	"github.com/sandevgo/quill/pkg/log"
	"github.com/sandevgo/quill/pkg/srv"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start Quill with the configured transports",
	Long:  `Connects tool clients, starts the vault indexer and background workers, and serves the CLI and Telegram transports.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting quill")

		app, err := NewApp(ctx)
		if err != nil {
			return err
		}

		services, err := app.Services(ctx)
		if err != nil {
			return err
		}
		for i, s := range services {
			if rl, ok := s.(*cli.ReadLine); ok {
				services[i] = &stopOnExit{Service: rl, stop: stop}
			}
		}

		srv.StartServices(ctx, services)

		srv.ShutdownServices(ctx, services)
		logger.Info().Msg("quill has been shut down gracefully")

		return nil
	},
}

// stopOnExit ends the process when the interactive session ends.
type stopOnExit struct {
	srv.Service
	stop context.CancelFunc
}

func (s *stopOnExit) Start(ctx context.Context) error {
	defer s.stop()
	return s.Service.Start(ctx)
}

func init() {
	rootCmd.AddCommand(startCmd)
}
