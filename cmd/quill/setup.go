package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/quill/internal/config"
	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/internal/providers/llm"
	"github.com/sandevgo/quill/internal/providers/mcp"
	"github.com/sandevgo/quill/internal/providers/tools"
	"github.com/sandevgo/quill/internal/service/agent"
	"github.com/sandevgo/quill/internal/service/budget"
	"github.com/sandevgo/quill/internal/service/command"
	"github.com/sandevgo/quill/internal/service/memory"
	"github.com/sandevgo/quill/internal/service/queue"
	"github.com/sandevgo/quill/internal/service/state"
	"github.com/sandevgo/quill/internal/service/summary"
	"github.com/sandevgo/quill/internal/service/vault"
	"github.com/sandevgo/quill/internal/storage/session"
	"github.com/sandevgo/quill/internal/storage/sqlite"
	"github.com/sandevgo/quill/internal/transport/cli"
	"github.com/sandevgo/quill/internal/transport/telegram"
	"github.com/sandevgo/quill/pkg/log"
	"github.com/sandevgo/quill/pkg/srv"
)

// App holds the wired components shared by the subcommands.
type App struct {
	Cfg       *config.AppConfig
	Policy    core.ContextPolicy
	DB        *sql.DB
	Resolver  *llm.Resolver
	Selection *llm.Selection
	Sessions  *session.FileStore
	Indexer   *vault.Indexer
	Tools     core.ToolSet
	MCP       *mcp.Service
	Queue     *queue.Queue
	Tasks     *agent.Dispatcher
	State     *state.GlobalState
	Router    *command.Router
	Agent     *agent.Agent
}

func NewApp(ctx context.Context) (*App, error) {
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		return nil, fmt.Errorf("failed to init env: %w", err)
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	policy := config.NewPolicyConfig(ctx).Policy()
	providersCfg := config.NewProvidersConfig(ctx)

	if err := os.MkdirAll(appCfg.GetRuntimePath(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	// 2. Storage
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	messages := sqlite.NewMessagesRepo(db)
	documents := sqlite.NewDocumentsRepo(db)
	sessions := session.NewFileStore(appCfg.GetSessionsPath())

	// 3. Providers
	resolver := llm.NewResolver(providersCfg)
	selection := llm.NewSelection(resolver, appCfg.Provider, appCfg.Model)
	model := summary.NewModel(resolver, selection)
	summarizer := summary.NewSummarizer(model)

	// 4. Vault
	searcher := vault.NewSearcher(documents)
	indexer := vault.NewIndexer(appCfg.GetVaultPath(), documents)
	native := tools.NewVault(appCfg.GetVaultPath(), searcher).Tools().Merge(tools.NewFetch().Tools())

	// 5. Tool clients
	mcpSvc := mcp.NewService(
		mcp.NewPool(),
		mcp.NewRegistry(mcp.NewFileStorage(appCfg.GetMCPConfigPath())),
		mcp.NewToolCache(),
		native,
	)

	// 6. Background work
	q := queue.New(queue.SessionWriter(sessions))
	dispatcher := agent.NewDispatcher(agent.DefaultTaskTimeout)
	tasks := &agent.Tasks{
		Dispatcher:    dispatcher,
		Store:         sessions,
		Messages:      messages,
		Refiner:       summarizer,
		Queue:         q,
		Planner:       agent.NewPlanner(model),
		Memory:        memory.NewExtractor(model, sessions),
		SummaryTokens: budget.SummaryTarget(policy),
	}

	// 7. Agent
	mode, err := core.ParseMode(appCfg.Mode)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("falling back to chat mode")
		mode = core.ModeChat
	}
	st := state.NewGlobalState(selection, mode)

	ag := agent.NewAgent(agent.Deps{
		Resolver:  resolver,
		Selection: selection,
		Budget:    budget.NewManager(budget.NewEstimator(appCfg.Estimator), summarizer, searcher),
		Policy:    policy,
		Tools:     mcpSvc,
		Prompts:   agent.NewPrompts(appCfg),
		Tasks:     tasks,
		Messages:  messages,
		State:     st,
		MaxSteps:  appCfg.MaxToolSteps,
	})

	return &App{
		Cfg:       appCfg,
		Policy:    policy,
		DB:        db,
		Resolver:  resolver,
		Selection: selection,
		Sessions:  sessions,
		Indexer:   indexer,
		Tools:     native,
		MCP:       mcpSvc,
		Queue:     q,
		Tasks:     dispatcher,
		State:     st,
		Router:    command.New(command.NewCommands(selection, st, mcpSvc, sessions)),
		Agent:     ag,
	}, nil
}

// CoreServices are stopped in reverse order: background tasks drain into
// the queue before it stops, and the database closes last.
func (a *App) CoreServices() []srv.Service {
	return []srv.Service{
		srv.NewCleanup(a.DB.Close),
		a.MCP,
		a.Queue,
		a.Tasks,
	}
}

func (a *App) Services(ctx context.Context) ([]srv.Service, error) {
	services := a.CoreServices()
	services = append(services, vault.NewWorker(a.Indexer, a.Cfg.GetReindexInterval()))

	transports, err := a.initTransports(ctx)
	if err != nil {
		return nil, err
	}
	return append(services, transports...), nil
}

func (a *App) initTransports(ctx context.Context) ([]srv.Service, error) {
	var services []srv.Service

	if a.Cfg.IsTelegramSelected() {
		tgCfg := config.NewTelegramConfig(ctx)
		bot, err := telegram.NewBot(ctx, tgCfg, a.Agent, a.Router)
		if err != nil {
			return nil, err
		}
		services = append(services, bot)
	}

	if a.Cfg.EnableCLI {
		rl, err := cli.NewReadLine(a.Agent, a.Router, a.Cfg)
		if err != nil {
			return nil, err
		}
		services = append(services, rl)
	}

	return services, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
