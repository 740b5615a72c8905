package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/internal/service/agent"
	"github.com/sandevgo/quill/pkg/log"
)

const DefaultSessionID = "cli-local"

// Runner serves one stored turn.
type Runner interface {
	Run(ctx context.Context, sessionID, input string, cb agent.Callbacks) (core.TurnResult, error)
}

type ReadLine struct {
	runner    Runner
	router    core.CommandRouter
	sessionID string
	rl        *readline.Instance
}

func NewReadLine(runner Runner, router core.CommandRouter, cfg core.AppConfig) (*ReadLine, error) {
	if err := os.MkdirAll(cfg.GetRuntimePath(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	var items []readline.PrefixCompleterInterface
	for _, cmd := range router.ListCommands() {
		items = append(items, readline.PcItem("/"+cmd.Name()))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     filepath.Join(cfg.GetRuntimePath(), "input_history"),
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		runner:    runner,
		router:    router,
		sessionID: DefaultSessionID,
		rl:        rl,
	}, nil
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("ReadLine chat started. Type 'exit' to quit, /help for commands.")

	printer := NewPrinter(r.rl.Stdout(), true)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line == "" {
			continue
		}

		if reply, ok := r.router.Execute(ctx, r.sessionID, line); ok {
			fmt.Fprintln(r.rl.Stdout(), reply)
			continue
		}

		res, err := r.runner.Run(ctx, r.sessionID, line, printer.Callbacks())
		if err != nil {
			logger.Error().Err(err).Msg("agent run failed")
			printer.Error(err)
			continue
		}
		printer.Finish(res)
	}
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}
