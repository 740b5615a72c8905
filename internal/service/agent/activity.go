package agent

import (
	"encoding/json"
	"path"
	"slices"
	"strings"

	"github.com/sandevgo/quill/internal/core"
)

type ToolKind int

const (
	KindOther ToolKind = iota
	KindSource
	KindProposal
	KindCreation
)

var (
	proposalTools = []string{"propose_edit", "edit_doc", "update_doc"}
	creationTools = []string{"create_doc", "create_note"}
)

// Classify maps a tool name to the kind of side effect its result carries.
func Classify(name string) ToolKind {
	base := strings.ToLower(name)
	if i := strings.LastIndexAny(base, "./:"); i >= 0 {
		base = base[i+1:]
	}

	switch {
	case slices.Contains(proposalTools, base):
		return KindProposal
	case slices.Contains(creationTools, base):
		return KindCreation
	case strings.Contains(base, "search"), strings.Contains(base, "list"):
		return KindSource
	}
	return KindOther
}

// Activity collects the side effects of one turn's tool results.
type Activity struct {
	sources   []string
	seen      map[string]struct{}
	proposals []core.DocChange
	creations []core.DocChange
}

func NewActivity() *Activity {
	return &Activity{seen: make(map[string]struct{})}
}

// Record classifies one tool result. Failed calls and results with
// ok=false are ignored.
func (a *Activity) Record(name, result string, callErr error) {
	if callErr != nil {
		return
	}

	kind := Classify(name)
	if kind == KindOther {
		return
	}

	var payload any
	if err := json.Unmarshal([]byte(result), &payload); err != nil {
		return
	}
	obj, _ := payload.(map[string]any)

	switch kind {
	case KindSource:
		if ok, present := obj["ok"].(bool); present && !ok {
			return
		}
		for _, p := range collectPaths(payload, nil) {
			a.addSource(p)
		}
	case KindProposal, KindCreation:
		if ok, _ := obj["ok"].(bool); !ok {
			return
		}
		p, _ := obj["path"].(string)
		p, valid := normalizePath(p)
		if !valid {
			return
		}
		content, _ := obj["content"].(string)
		change := core.DocChange{Path: p, Content: content}
		if kind == KindProposal {
			a.proposals = append(a.proposals, change)
		} else {
			a.creations = append(a.creations, change)
		}
	}
}

func (a *Activity) addSource(p string) {
	if _, dup := a.seen[p]; dup {
		return
	}
	a.seen[p] = struct{}{}
	a.sources = append(a.sources, p)
}

func (a *Activity) Sources() []string { return a.sources }

func (a *Activity) Proposals() []core.DocChange { return a.proposals }

func (a *Activity) Creations() []core.DocChange { return a.creations }

// Changes counts proposals and creations.
func (a *Activity) Changes() int { return len(a.proposals) + len(a.creations) }

// collectPaths walks a decoded JSON value depth first and returns every
// "path" string field in document order of arrays.
func collectPaths(v any, out []string) []string {
	switch t := v.(type) {
	case map[string]any:
		if p, ok := t["path"].(string); ok {
			if p, valid := normalizePath(p); valid {
				out = append(out, p)
			}
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if k != "path" {
				out = collectPaths(t[k], out)
			}
		}
	case []any:
		for _, item := range t {
			out = collectPaths(item, out)
		}
	}
	return out
}

// normalizePath accepts vault-rooted paths. A leading slash is dropped,
// relative prefixes and URLs are rejected.
func normalizePath(p string) (string, bool) {
	p = strings.TrimSpace(p)
	if p == "" || strings.Contains(p, "://") || strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../") {
		return "", false
	}
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", false
	}
	return p, true
}
