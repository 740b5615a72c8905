package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/pkg/log"
)

const (
	MaxCandidates    = 3
	maxContentLength = 500
	maxTags          = 5
)

// durableMarkers are phrases that usually introduce something worth keeping.
var durableMarkers = []string{
	"remember",
	"don't forget",
	"from now on",
	"always ",
	"never ",
	"i prefer",
	"i like",
	"i don't like",
	"my name is",
	"call me",
	"i work",
	"i'm working on",
	"we use",
	"our team",
	"my project",
}

// Completer runs a single prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Turn is the part of a finished turn the extractor looks at.
type Turn struct {
	UserText      string
	AssistantText string
	// Changes counts proposals plus creations.
	Changes int
}

// ShouldExtract is the cheap gate run before asking the model.
func ShouldExtract(turn Turn) bool {
	if turn.Changes > 0 {
		return true
	}
	text := strings.ToLower(turn.UserText + "\n" + turn.AssistantText)
	for _, m := range durableMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

type Extractor struct {
	model Completer
	store core.SessionStore
	now   func() time.Time
}

func NewExtractor(model Completer, store core.SessionStore) *Extractor {
	return &Extractor{model: model, store: store, now: time.Now}
}

// Run extracts memories from a turn and appends the new ones. The merge runs
// against the stored set at save time, so overlapping runs of one session
// keep each other's items. It returns the number of new items.
func (e *Extractor) Run(ctx context.Context, sessionID string, turn Turn) (int, error) {
	existing, err := e.store.LoadMemories(sessionID)
	if err != nil {
		return 0, fmt.Errorf("load memories: %w", err)
	}

	candidates, err := e.Extract(ctx, turn, existing)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	var added int
	err = e.store.UpdateMemories(sessionID, func(current []core.MemoryItem) []core.MemoryItem {
		merged, n := Merge(current, candidates)
		if added = n; n == 0 {
			return nil
		}
		return merged
	})
	if err != nil {
		return 0, fmt.Errorf("save memories: %w", err)
	}
	if added == 0 {
		return 0, nil
	}
	log.FromCtx(ctx).Info().Str("session", sessionID).Int("added", added).Msg("memories extracted")
	return added, nil
}

// Extract asks the model for candidates and returns the valid ones, stamped
// with fresh ids.
func (e *Extractor) Extract(ctx context.Context, turn Turn, existing []core.MemoryItem) ([]core.MemoryItem, error) {
	conversation := fmt.Sprintf("USER: %s\nASSISTANT: %s\n", strings.TrimSpace(turn.UserText), strings.TrimSpace(turn.AssistantText))

	resp, err := e.model.Complete(ctx, extractionSystemPrompt, buildExtractionPrompt(conversation, existing))
	if err != nil {
		return nil, fmt.Errorf("llm chat: %w", err)
	}

	raw, err := parseExtractionResponse(resp)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	items := make([]core.MemoryItem, 0, MaxCandidates)
	for _, c := range raw {
		item, ok := c.validate()
		if !ok {
			continue
		}
		item.ID = uuid.NewString()
		item.CreatedAt = now
		items = append(items, item)
		if len(items) == MaxCandidates {
			break
		}
	}
	return items, nil
}

// Merge appends candidates whose content is not stored yet. Comparison is by
// exact content after trimming.
func Merge(existing, candidates []core.MemoryItem) ([]core.MemoryItem, int) {
	seen := make(map[string]struct{}, len(existing)+len(candidates))
	merged := slices.Clone(existing)
	for _, m := range existing {
		seen[strings.TrimSpace(m.Content)] = struct{}{}
	}

	added := 0
	for _, c := range candidates {
		key := strings.TrimSpace(c.Content)
		if _, dup := seen[key]; dup || key == "" {
			continue
		}
		seen[key] = struct{}{}
		c.Content = key
		merged = append(merged, c)
		added++
	}
	return merged, added
}

type candidate struct {
	Type    string   `json:"type"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func (c candidate) validate() (core.MemoryItem, bool) {
	typ := core.MemoryType(strings.ToLower(strings.TrimSpace(c.Type)))
	content := strings.TrimSpace(c.Content)
	if !typ.Valid() || content == "" || len([]rune(content)) > maxContentLength {
		return core.MemoryItem{}, false
	}

	tags := make([]string, 0, len(c.Tags))
	for _, t := range c.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(tags, t) && len(tags) < maxTags {
			tags = append(tags, t)
		}
	}
	return core.MemoryItem{Type: typ, Content: content, Tags: tags}, true
}

func parseExtractionResponse(content string) ([]candidate, error) {
	jsonStr := extractJSONArray(content)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	var out []candidate
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		return nil, fmt.Errorf("unmarshal memories: %w", err)
	}
	return out, nil
}

// extractJSONArray cuts the outermost [...] so code fences around it are tolerated.
func extractJSONArray(content string) string {
	start := strings.Index(content, "[")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(content[start:], "]")
	if end == -1 {
		return ""
	}

	return content[start : start+end+1]
}
