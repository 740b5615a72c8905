package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/quill/internal/core"
)

const summarizeSystemPrompt = `You compress conversations between a user and a writing assistant working in a document vault.
Keep decisions, open questions, names, file paths and user preferences. Drop greetings and repetition.
Answer with the summary only, as short plain paragraphs or bullet points.`

const refineSystemPrompt = `You improve a draft summary of a conversation using the full transcript.
Fix omissions and mistakes, keep it within the requested length, and answer with the summary only.`

// Completer runs a single prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

var _ core.Summarizer = (*Summarizer)(nil)

type Summarizer struct {
	model Completer
}

func NewSummarizer(model Completer) *Summarizer {
	return &Summarizer{model: model}
}

func (s *Summarizer) Summarize(ctx context.Context, history []core.Message, targetTokens int) (string, error) {
	if len(history) == 0 {
		return "", errors.New("nothing to summarize")
	}

	prompt := fmt.Sprintf("Summarize in at most %d tokens.\n\nTranscript:\n%s", targetTokens, Transcript(history))
	text, err := s.model.Complete(ctx, summarizeSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return text, nil
}

// Refine asks for a better version of draft given the messages it covers.
func (s *Summarizer) Refine(ctx context.Context, draft string, history []core.Message, targetTokens int) (string, error) {
	prompt := fmt.Sprintf("Target length: %d tokens.\n\nDraft summary:\n%s\n\nTranscript:\n%s",
		targetTokens, strings.TrimSpace(draft), Transcript(history))

	text, err := s.model.Complete(ctx, refineSystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("refine summary: %w", err)
	}
	if text == "" {
		return "", errors.New("refine summary: empty response")
	}
	return text, nil
}

// Transcript renders user and assistant turns as "ROLE: text" lines. Tool
// traffic and system prompts are left out.
func Transcript(history []core.Message) string {
	var b strings.Builder
	for _, m := range history {
		if m.Role != core.RoleUser && m.Role != core.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		b.WriteString(strings.ToUpper(m.Role))
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(m.Content))
		b.WriteByte('\n')
	}
	return b.String()
}
