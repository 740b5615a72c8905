package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/internal/service/summary"
)

const planSystemPrompt = `You maintain the working plan of a writing session.
Given the latest exchange, answer with a JSON object {"plan": "...", "next": "..."}.
"plan" is a short markdown bullet list of the overall steps, "next" is the single next action.
Answer with JSON only.`

var planMarkers = []string{"plan", "step", "first", "then", "outline", "draft", "restructure", "todo"}

// Completer runs a single prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Plan is the planning output written to the Plan and Next scratchpad sections.
type Plan struct {
	Plan string `json:"plan"`
	Next string `json:"next"`
}

type Planner struct {
	model Completer
}

func NewPlanner(model Completer) *Planner {
	return &Planner{model: model}
}

// ShouldPlan reports whether a turn looks like multi-step work.
func ShouldPlan(userText string, steps, changes int) bool {
	if steps >= 2 || changes > 0 {
		return true
	}
	lower := strings.ToLower(userText)
	for _, m := range planMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func (p *Planner) Plan(ctx context.Context, history []core.Message, answer string) (Plan, error) {
	prompt := fmt.Sprintf("Conversation:\n%s\nLatest answer:\n%s", summary.Transcript(history), answer)

	text, err := p.model.Complete(ctx, planSystemPrompt, prompt)
	if err != nil {
		return Plan{}, fmt.Errorf("plan: %w", err)
	}
	return parsePlan(text)
}

func parsePlan(text string) (Plan, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Plan{}, errors.New("plan: no JSON object in response")
	}

	var plan Plan
	if err := json.Unmarshal([]byte(text[start:end+1]), &plan); err != nil {
		return Plan{}, fmt.Errorf("plan: %w", err)
	}
	plan.Plan = strings.TrimSpace(plan.Plan)
	plan.Next = strings.TrimSpace(plan.Next)
	if plan.Plan == "" && plan.Next == "" {
		return Plan{}, errors.New("plan: empty plan")
	}
	return plan, nil
}
