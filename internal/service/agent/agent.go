package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/pkg/log"
)

const DefaultMaxSteps = 8

// ContextBuilder bounds the history of a turn.
type ContextBuilder interface {
	BuildContext(ctx context.Context, req core.ContextRequest, policy core.ContextPolicy) core.ContextBuildResult
}

// Selector returns the session default provider and model.
type Selector interface {
	Current() (provider, model string)
}

// TurnRequest describes one user turn. Empty ProviderID or ModelID fall back
// to the session default.
type TurnRequest struct {
	SessionID   string
	Messages    []core.Message
	Mode        core.Mode
	ProviderID  string
	ModelID     string
	ToolClients []string
	Scope       string
}

// Callbacks receive the live output of a turn. Any of them may be nil.
type Callbacks struct {
	OnDelta    func(text string)
	OnStatus   func(status string)
	OnThought  func(text string)
	OnProgress func(step core.StepProgress)
}

func (c Callbacks) delta(s string) {
	if c.OnDelta != nil && s != "" {
		c.OnDelta(s)
	}
}

func (c Callbacks) status(s string) {
	if c.OnStatus != nil {
		c.OnStatus(s)
	}
}

func (c Callbacks) thought(s string) {
	if c.OnThought != nil && s != "" {
		c.OnThought(s)
	}
}

func (c Callbacks) progress(p core.StepProgress) {
	if c.OnProgress != nil {
		c.OnProgress(p)
	}
}

type Deps struct {
	Resolver  core.ProviderResolver
	Selection Selector
	Budget    ContextBuilder
	Policy    core.ContextPolicy
	Tools     core.ToolRegistry
	Prompts   *Prompts
	Tasks     *Tasks
	Messages  core.MessagesRepository
	State     core.GlobalState
	MaxSteps  int
}

type Agent struct {
	deps Deps
}

func NewAgent(deps Deps) *Agent {
	if deps.MaxSteps <= 0 {
		deps.MaxSteps = DefaultMaxSteps
	}
	return &Agent{deps: deps}
}

// Run serves one turn of a stored session: the user message is persisted,
// the whole stored history goes through StreamChat and the answer is stored.
func (a *Agent) Run(ctx context.Context, sessionID, input string, cb Callbacks) (core.TurnResult, error) {
	logger := log.FromCtx(ctx)

	userMsg := core.Message{Role: core.RoleUser, Content: input}
	if err := a.deps.Messages.AddMessage(ctx, sessionID, userMsg); err != nil {
		return core.TurnResult{}, fmt.Errorf("failed to save user message: %w", err)
	}

	history, err := a.deps.Messages.GetMessages(ctx, sessionID, 0)
	if err != nil {
		return core.TurnResult{}, fmt.Errorf("failed to fetch history: %w", err)
	}

	req := TurnRequest{SessionID: sessionID, Messages: history, Mode: core.ModeChat}
	if a.deps.State != nil {
		req.Mode = a.deps.State.Mode(sessionID)
		req.ToolClients = a.deps.State.SelectedClients(sessionID)
		req.Scope = a.deps.State.Scope(sessionID)
	}

	res, err := a.stream(ctx, req, cb, true)
	if err != nil {
		return res, err
	}

	if res.Text != "" {
		answer := core.Message{Role: core.RoleAssistant, Content: res.Text}
		if err := a.deps.Messages.AddMessage(ctx, sessionID, answer); err != nil {
			logger.Error().Err(err).Msg("failed to save assistant message")
		}
	}
	return res, nil
}

// StreamChat runs one turn over req.Messages without touching stored history.
func (a *Agent) StreamChat(ctx context.Context, req TurnRequest, cb Callbacks) (core.TurnResult, error) {
	return a.stream(ctx, req, cb, false)
}

func (a *Agent) stream(ctx context.Context, req TurnRequest, cb Callbacks, persisted bool) (core.TurnResult, error) {
	providerID, modelID := a.model(req)
	logger := log.FromCtx(ctx).With().Str("session", req.SessionID).Str("provider", providerID).Str("model", modelID).Logger()
	ctx = logger.WithContext(ctx)

	provider, err := a.deps.Resolver.Resolve(providerID, modelID)
	if err != nil {
		var cfgErr *core.ConfigurationError
		if errors.As(err, &cfgErr) {
			return core.TurnResult{}, cfgErr
		}
		return core.TurnResult{}, &core.ConfigurationError{Provider: providerID, Reason: err.Error()}
	}

	mode := req.Mode
	if mode == "" {
		mode = core.ModeChat
	}

	var clients []core.MCPClientOverview
	if a.deps.Tools != nil {
		clients = a.deps.Tools.Clients(ctx)
	}

	cb.status("building context")
	built := a.deps.Budget.BuildContext(ctx, core.ContextRequest{
		Messages: req.Messages,
		Scope:    req.Scope,
		Clients:  clients,
	}, a.deps.Policy)
	for _, f := range built.Metrics.Failures {
		logger.Warn().Str("failure", f).Msg("context degraded")
	}

	msgs := make([]core.Message, 0, len(built.TrimmedMessages)+1)
	msgs = append(msgs, core.Message{Role: core.RoleSystem, Content: a.deps.Prompts.System(ctx, mode, built.SystemAugment)})
	msgs = append(msgs, sanitizeToolCalls(ctx, built.TrimmedMessages)...)

	tools := a.toolSet(ctx, mode, req.ToolClients, cb)
	defs := tools.Definitions()
	executor := NewExecutor(tools)
	activity := NewActivity()

	var reasoning strings.Builder
	scanner := NewAnswerScanner(cb.delta, cb.thought)

	steps, toolResults := 0, 0
	for steps < a.deps.MaxSteps {
		cb.status("thinking")
		msg, err := provider.ChatStream(ctx, msgs, defs, func(ev core.StreamEvent) {
			switch ev.Kind {
			case core.EventText:
				scanner.Write(ev.Text)
			case core.EventReasoning:
				reasoning.WriteString(ev.Text)
				cb.thought(ev.Text)
			case core.EventToolCall:
				if ev.ToolCall != nil {
					cb.status("calling " + ev.ToolCall.Function.Name)
				}
			}
		})
		scanner.Flush()
		if err != nil {
			return core.TurnResult{}, &core.ProviderError{Provider: providerID, Model: modelID, Err: err}
		}

		msgs = append(msgs, msg)
		if len(msg.ToolCalls) == 0 {
			break
		}

		steps++
		results := executor.Execute(ctx, msg.ToolCalls)
		names := make([]string, 0, len(results))
		for _, r := range results {
			activity.Record(r.Name, r.Content, r.Err)
			msgs = append(msgs, r.Message)
			names = append(names, r.Name)
		}
		toolResults += len(results)

		cb.progress(core.StepProgress{Step: steps, ToolCalls: names, Results: len(results)})
		cb.status(fmt.Sprintf("step %d: %s", steps, strings.Join(names, ", ")))
	}

	answer := strings.TrimSpace(scanner.Answer())
	outside := scanner.Outside()
	switch {
	case answer == "" && toolResults > 0:
		cb.status("composing answer")
		msg, err := provider.Chat(ctx, msgs, nil)
		if err != nil {
			return core.TurnResult{}, &core.ProviderError{Provider: providerID, Model: modelID, Err: err}
		}
		answer = ExtractAnswer(msg.Content)
		cb.delta(answer)
	case answer == "" && !scanner.Opened():
		// The model ignored the answer tags and used no tools.
		answer = strings.TrimSpace(outside)
		outside = ""
		cb.delta(answer)
	}

	thoughts := strings.TrimSpace(reasoning.String() + "\n" + outside)
	res := core.TurnResult{
		Text:      answer,
		Sources:   activity.Sources(),
		Proposals: activity.Proposals(),
		Creations: activity.Creations(),
		Thoughts:  thoughts,
		Context:   built.Metrics,
	}

	logger.Info().
		Int("steps", steps).
		Int("sources", len(res.Sources)).
		Int("changes", activity.Changes()).
		Int("tokens", built.Metrics.InputTokensEstimated).
		Msg("turn completed")

	a.deps.Tasks.Dispatch(ctx, Outcome{
		SessionID: req.SessionID,
		History:   req.Messages,
		Context:   built,
		Result:    res,
		Steps:     steps,
		Persisted: persisted,
	})

	return res, nil
}

func (a *Agent) model(req TurnRequest) (string, string) {
	providerID, modelID := req.ProviderID, req.ModelID
	if a.deps.Selection == nil {
		return providerID, modelID
	}

	defProvider, defModel := a.deps.Selection.Current()
	if providerID == "" {
		providerID = defProvider
	}
	if modelID == "" && providerID == defProvider {
		modelID = defModel
	}
	return providerID, modelID
}

// toolSet returns the base tools, plus the selected clients' tools in agent
// mode. External tools win on name collisions.
func (a *Agent) toolSet(ctx context.Context, mode core.Mode, clientIDs []string, cb Callbacks) core.ToolSet {
	if a.deps.Tools == nil {
		return core.ToolSet{}
	}

	tools := a.deps.Tools.BaseTools()
	if mode != core.ModeAgent || len(clientIDs) == 0 {
		return tools
	}

	external, err := a.deps.Tools.ExternalTools(ctx, clientIDs)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Strs("clients", clientIDs).Msg("some tool clients are unavailable")
		cb.status("some tool clients are unavailable")
	}
	return tools.Merge(external)
}
