package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/internal/service/agent"
	"github.com/sandevgo/quill/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const baseContextKey = "base_context"

// typingEvery throttles chat actions while a turn is running.
const typingEvery = 4 * time.Second

type runner interface {
	Run(ctx context.Context, sessionID, input string, cb agent.Callbacks) (core.TurnResult, error)
}

type Bot struct {
	bot     *tele.Bot
	runner  runner
	router  core.CommandRouter
	sender  *sender
	ownerID int64
}

func NewBot(
	ctx context.Context,
	cfg core.TelegramConfig,
	runner runner,
	router core.CommandRouter,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.GetTelegramToken(),
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:     b,
		runner:  runner,
		router:  router,
		sender:  newSender(b),
		ownerID: cfg.GetTelegramOwnerID(),
	}

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	// Only the owner may talk to the bot.
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender() == nil || c.Sender().ID != bot.ownerID {
				return nil
			}
			return next(c)
		}
	})

	b.Handle(tele.OnText, bot.handleMessage)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) handleMessage(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	logger := log.FromCtx(ctx)
	sessionID := fmt.Sprintf("telegram-%d", c.Chat().ID)

	if reply, ok := b.router.Execute(ctx, sessionID, c.Text()); ok {
		return b.sender.sendMarkdown(ctx, c.Chat(), reply, true)
	}

	_ = c.Notify(tele.Typing)
	lastTyping := time.Now()

	res, err := b.runner.Run(ctx, sessionID, c.Text(), agentCallbacks(func() {
		if time.Since(lastTyping) >= typingEvery {
			_ = c.Notify(tele.Typing)
			lastTyping = time.Now()
		}
	}))
	if err != nil {
		logger.Error().Err(err).Msg("agent run failed")
		return c.Send(fmt.Sprintf("error: %v", err))
	}

	return b.sender.sendMarkdown(ctx, c.Chat(), formatResult(res), false)
}

// formatResult renders the answer followed by what the turn touched.
func formatResult(res core.TurnResult) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(res.Text))
	if sb.Len() == 0 {
		sb.WriteString("_No answer._")
	}

	writeList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n\n**%s**\n", title)
		for _, it := range items {
			fmt.Fprintf(&sb, "- `%s`\n", it)
		}
	}

	writeList("Sources", res.Sources)
	writeList("Proposed edits", changePaths(res.Proposals))
	writeList("Proposed documents", changePaths(res.Creations))
	return strings.TrimRight(sb.String(), "\n")
}

func changePaths(changes []core.DocChange) []string {
	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		paths = append(paths, c.Path)
	}
	return paths
}
