package budget

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/pkg/log"
)

const minSummaryTokens = 128

// Manager decides what part of a conversation enters a model call.
type Manager struct {
	estimator  Estimator
	summarizer core.Summarizer
	retriever  core.Retriever
}

// NewManager builds a manager. summarizer and retriever may be nil, in which
// case the corresponding slices are never produced.
func NewManager(estimator Estimator, summarizer core.Summarizer, retriever core.Retriever) *Manager {
	return &Manager{
		estimator:  estimator,
		summarizer: summarizer,
		retriever:  retriever,
	}
}

// BuildContext assembles the bounded context for one model call. It never
// fails: summarizer and retrieval errors leave their slice out and are listed
// in the metrics.
func (m *Manager) BuildContext(ctx context.Context, req core.ContextRequest, policy core.ContextPolicy) core.ContextBuildResult {
	logger := log.FromCtx(ctx)
	history := req.Messages

	var res core.ContextBuildResult
	cut := m.windowStart(history, policy)

	docs, err := m.retrieve(ctx, history, req.Scope, policy.Retrieval)
	if err != nil {
		res.Metrics.Failures = append(res.Metrics.Failures, fmt.Sprintf("retrieval: %v", err))
	}

	var clients []core.MCPClientOverview
	if policy.IncludeMCPOverview && len(req.Clients) > 0 {
		clients = req.Clients
	}

	target := SummaryTarget(policy)

	// Fit the cap before summarizing so the summary covers every dropped message.
	if policy.MaxInputTokens > 0 {
		for {
			reserve := 0
			if cut > 0 {
				reserve = min(target, m.estimator.Estimate(history[:cut]))
			}
			size := m.estimator.EstimateText(render("", clients, docs)) + reserve + m.estimator.Estimate(history[cut:])
			if size <= policy.MaxInputTokens {
				break
			}
			if len(docs) > 0 {
				docs = docs[:len(docs)-1]
				continue
			}
			if cut < len(history)-1 {
				cut++
				continue
			}
			break
		}
	}

	if cut > 0 {
		dropped := history[:cut]
		res.Metrics.PrunedTokens = m.estimator.Estimate(dropped)

		summary, err := m.summarize(ctx, dropped, target)
		if err != nil {
			logger.Warn().Err(err).Int("dropped", cut).Msg("history summary unavailable")
			res.Metrics.Failures = append(res.Metrics.Failures, fmt.Sprintf("summary: %v", err))
		} else {
			res.SummaryText = summary
			res.Metrics.Summarized = true
		}
	}
	res.TrimmedMessages = history[cut:]

	if policy.MaxInputTokens > 0 {
		for len(docs) > 0 && m.estimator.EstimateText(render(res.SummaryText, clients, docs))+m.estimator.Estimate(res.TrimmedMessages) > policy.MaxInputTokens {
			docs = docs[:len(docs)-1]
		}
	}

	if res.SummaryText != "" {
		res.Slices = append(res.Slices, core.ContextSlice{Kind: core.SliceSummary, Summary: res.SummaryText})
	}
	if len(clients) > 0 {
		res.Slices = append(res.Slices, core.ContextSlice{Kind: core.SliceMCPOverview, Clients: clients})
	}
	for i := range docs {
		res.Slices = append(res.Slices, core.ContextSlice{Kind: core.SliceDoc, Doc: &docs[i]})
	}
	res.Slices = append(res.Slices, core.ContextSlice{Kind: core.SliceMessages, Messages: res.TrimmedMessages})

	res.SystemAugment = render(res.SummaryText, clients, docs)
	res.Metrics.RetrievalCount = len(docs)
	res.Metrics.InputTokensEstimated = m.estimator.EstimateText(res.SystemAugment) + m.estimator.Estimate(res.TrimmedMessages)

	logger.Debug().
		Int("messages", len(history)).
		Int("kept", len(res.TrimmedMessages)).
		Int("docs", len(docs)).
		Int("tokens", res.Metrics.InputTokensEstimated).
		Bool("summarized", res.Metrics.Summarized).
		Msg("context built")

	return res
}

// SummaryTarget is the token length asked of history summaries.
func SummaryTarget(policy core.ContextPolicy) int {
	return max(policy.SummarizeOverTokens/4, minSummaryTokens)
}

// windowStart returns the index of the first message kept verbatim.
func (m *Manager) windowStart(history []core.Message, policy core.ContextPolicy) int {
	n := len(history)
	limit := policy.HistoryMaxMessages
	if limit <= 0 {
		limit = n
	}

	if m.estimator.Estimate(history) <= policy.SummarizeOverTokens && n <= limit {
		return 0
	}

	start := max(n-limit, 0)
	for start < n-1 && m.estimator.Estimate(history[start:]) > policy.SummarizeOverTokens {
		start++
	}
	return start
}

func (m *Manager) summarize(ctx context.Context, msgs []core.Message, target int) (string, error) {
	if m.summarizer == nil {
		return "", core.ErrNoProvider
	}
	text, err := m.summarizer.Summarize(ctx, msgs, target)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty summary")
	}
	return text, nil
}

func (m *Manager) retrieve(ctx context.Context, history []core.Message, scope string, policy core.RetrievalPolicy) ([]core.DocSlice, error) {
	if !policy.EnableVault || policy.K <= 0 || m.retriever == nil {
		return nil, nil
	}
	query := strings.TrimSpace(core.LatestUserText(history))
	if query == "" {
		return nil, nil
	}

	scope = strings.Trim(scope, "/")
	k := policy.K
	if scope != "" {
		k *= 3
	}

	found, err := m.retriever.Search(ctx, query, k, policy.SnippetLength)
	if err != nil {
		return nil, err
	}

	docs := make([]core.DocSlice, 0, policy.K)
	for _, d := range found {
		if !InScope(d.Path, scope) {
			continue
		}
		d.Snippet = truncateRunes(d.Snippet, policy.SnippetLength)
		docs = append(docs, d)
		if len(docs) == policy.K {
			break
		}
	}
	return docs, nil
}

// InScope reports whether a vault path lies under scope. An empty scope
// matches everything.
func InScope(path, scope string) bool {
	scope = strings.Trim(scope, "/")
	if scope == "" {
		return true
	}
	path = strings.TrimPrefix(path, "/")
	return path == scope || strings.HasPrefix(path, scope+"/")
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
