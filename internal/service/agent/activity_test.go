package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sandevgo/quill/internal/core"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want ToolKind
	}{
		{"search_docs", KindSource},
		{"list_docs", KindSource},
		{"notion.search_pages", KindSource},
		{"propose_edit", KindProposal},
		{"edit_doc", KindProposal},
		{"create_doc", KindCreation},
		{"CREATE_NOTE", KindCreation},
		{"read_doc", KindOther},
		{"fetch_url", KindOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.name))
		})
	}
}

func TestActivity_Sources(t *testing.T) {
	a := NewActivity()

	a.Record("search_docs", `{"ok":true,"results":[{"path":"notes/a.md"},{"path":"/notes/b.md"},{"path":"notes/a.md"}]}`, nil)
	a.Record("list_docs", `{"ok":true,"docs":[{"path":"notes/b.md"},{"path":"c.md"}]}`, nil)
	a.Record("list_docs", `{"results":[{"path":"d.md"}]}`, nil)

	assert.Equal(t, []string{"notes/a.md", "notes/b.md", "c.md", "d.md"}, a.Sources())
}

func TestActivity_IgnoresFailures(t *testing.T) {
	a := NewActivity()

	a.Record("search_docs", `{"ok":false,"results":[{"path":"x.md"}]}`, nil)
	a.Record("search_docs", `{"ok":true,"results":[{"path":"y.md"}]}`, errors.New("boom"))
	a.Record("search_docs", `not json`, nil)
	a.Record("search_docs", `{"ok":true,"results":[{"path":"../etc/passwd"},{"path":"https://example.com/a"}]}`, nil)
	a.Record("propose_edit", `{"path":"a.md","content":"x"}`, nil)
	a.Record("create_doc", `{"ok":false,"path":"a.md"}`, nil)
	a.Record("read_doc", `{"ok":true,"path":"a.md"}`, nil)

	assert.Empty(t, a.Sources())
	assert.Empty(t, a.Proposals())
	assert.Empty(t, a.Creations())
	assert.Zero(t, a.Changes())
}

func TestActivity_Changes(t *testing.T) {
	a := NewActivity()

	a.Record("propose_edit", `{"ok":true,"path":"/notes/a.md","content":"new","reason":"typo"}`, nil)
	a.Record("create_doc", `{"ok":true,"path":"ideas.md","content":"# Ideas"}`, nil)

	assert.Equal(t, []core.DocChange{{Path: "notes/a.md", Content: "new"}}, a.Proposals())
	assert.Equal(t, []core.DocChange{{Path: "ideas.md", Content: "# Ideas"}}, a.Creations())
	assert.Equal(t, 2, a.Changes())
}
