package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/internal/service/command"
	"github.com/sandevgo/quill/internal/transport/cli"
	"github.com/sandevgo/quill/pkg/log"
	"github.com/sandevgo/quill/pkg/srv"
	"github.com/spf13/cobra"
)

const connectTimeout = 30 * time.Second

var askOpts struct {
	session  string
	mode     string
	model    string
	scope    string
	clients  []string
	thoughts bool
}

var askCmd = &cobra.Command{
	Use:          "ask <question>",
	Short:        "Ask one question and stream the answer",
	Args:         cobra.MinimumNArgs(1),
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

		services := app.CoreServices()
		for _, s := range services {
			if err := s.Start(ctx); err != nil {
				return err
			}
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), srv.ShutdownTimeout)
			defer cancel()
			for i := len(services) - 1; i >= 0; i-- {
				if err := services[i].Shutdown(shutdownCtx); err != nil {
					log.FromCtx(ctx).Error().Err(err).Msgf("%T failed to shutdown", services[i])
				}
			}
		}()

		if err := applyAskOptions(ctx, app); err != nil {
			return err
		}

		printer := cli.NewPrinter(cmd.OutOrStdout(), askOpts.thoughts)
		res, err := app.Agent.Run(ctx, askOpts.session, strings.Join(args, " "), printer.Callbacks())
		if err != nil {
			printer.Error(err)
			return err
		}
		printer.Finish(res)
		return nil
	},
}

func applyAskOptions(ctx context.Context, app *App) error {
	session := askOpts.session
	if askOpts.mode != "" {
		mode, err := core.ParseMode(askOpts.mode)
		if err != nil {
			return err
		}
		if err := app.State.SetMode(session, mode); err != nil {
			return err
		}
	}
	if askOpts.model != "" {
		if err := app.State.ChangeModel(ctx, askOpts.model); err != nil {
			return err
		}
	}
	if askOpts.scope != "" {
		scope, err := command.ParseScope(askOpts.scope)
		if err != nil {
			return err
		}
		app.State.SetScope(session, scope)
	}
	if len(askOpts.clients) > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := app.MCP.WaitConnected(waitCtx); err != nil {
			return fmt.Errorf("waiting for tool clients: %w", err)
		}
		app.State.SelectClients(session, askOpts.clients)
	}
	return nil
}

func init() {
	askCmd.Flags().StringVarP(&askOpts.session, "session", "s", cli.DefaultSessionID, "session id")
	askCmd.Flags().StringVarP(&askOpts.mode, "mode", "m", "", "chat or agent")
	askCmd.Flags().StringVar(&askOpts.model, "model", "", "model as [provider/]model")
	askCmd.Flags().StringVar(&askOpts.scope, "scope", "", "restrict retrieval to a vault folder")
	askCmd.Flags().StringSliceVarP(&askOpts.clients, "tools", "t", nil, "tool clients to enable in agent mode")
	askCmd.Flags().BoolVar(&askOpts.thoughts, "thoughts", false, "print reasoning")
	rootCmd.AddCommand(askCmd)
}
