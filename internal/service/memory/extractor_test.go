package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/internal/storage/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply string
	err   error
	user  string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.user = user
	return f.reply, f.err
}

type memStore struct {
	items []core.MemoryItem
	saves int
}

func (m *memStore) UpdateSection(sessionID, section, body string) error { return nil }
func (m *memStore) AppendTimestamped(sessionID, text string) error      { return nil }
func (m *memStore) WriteSummary(sessionID, text string) error           { return nil }

func (m *memStore) LoadMemories(sessionID string) ([]core.MemoryItem, error) {
	return m.items, nil
}

func (m *memStore) SaveMemories(sessionID string, items []core.MemoryItem) error {
	m.saves++
	m.items = items
	return nil
}

func (m *memStore) UpdateMemories(sessionID string, fn func([]core.MemoryItem) []core.MemoryItem) error {
	if next := fn(m.items); next != nil {
		return m.SaveMemories(sessionID, next)
	}
	return nil
}

// barrierCompleter holds every caller until all of them have loaded the
// stored memories and asked the model.
type barrierCompleter struct {
	reply   string
	arrived *sync.WaitGroup
}

func (b barrierCompleter) Complete(context.Context, string, string) (string, error) {
	b.arrived.Done()
	b.arrived.Wait()
	return b.reply, nil
}

func TestShouldExtract(t *testing.T) {
	tests := []struct {
		name string
		turn Turn
		want bool
	}{
		{"small talk", Turn{UserText: "thanks!", AssistantText: "You're welcome."}, false},
		{"preference", Turn{UserText: "I prefer British spelling"}, true},
		{"remember", Turn{UserText: "Please REMEMBER the deadline is friday"}, true},
		{"changes", Turn{UserText: "fix typo", Changes: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldExtract(tt.turn))
		})
	}
}

func TestExtractor_Extract(t *testing.T) {
	c := &fakeCompleter{reply: "```json\n[" +
		`{"type":"preference","content":" British spelling ","tags":["Style"," style ",""]},` +
		`{"type":"opinion","content":"invalid type"},` +
		`{"type":"fact","content":"   "},` +
		`{"type":"entity","content":"Project Atlas"},` +
		`{"type":"fact","content":"Deadline is Friday"},` +
		`{"type":"fact","content":"fourth valid item"}` +
		"]\n```"}
	e := NewExtractor(c, &memStore{})
	e.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

	items, err := e.Extract(context.Background(), Turn{UserText: "hi"}, []core.MemoryItem{{Type: core.MemoryFact, Content: "known"}})
	require.NoError(t, err)
	require.Len(t, items, MaxCandidates)

	assert.Equal(t, core.MemoryPreference, items[0].Type)
	assert.Equal(t, "British spelling", items[0].Content)
	assert.Equal(t, []string{"style"}, items[0].Tags)
	assert.Equal(t, "Project Atlas", items[1].Content)
	assert.Equal(t, "Deadline is Friday", items[2].Content)
	assert.NotEmpty(t, items[0].ID)
	assert.NotEqual(t, items[0].ID, items[1].ID)
	assert.Equal(t, 2026, items[0].CreatedAt.Year())

	assert.Contains(t, c.user, "- (fact) known")
	assert.Contains(t, c.user, "USER: hi")
}

func TestExtractor_ExtractErrors(t *testing.T) {
	e := NewExtractor(&fakeCompleter{reply: "no memories here"}, &memStore{})
	_, err := e.Extract(context.Background(), Turn{}, nil)
	require.Error(t, err)

	e = NewExtractor(&fakeCompleter{reply: `[{"type":`}, &memStore{})
	_, err = e.Extract(context.Background(), Turn{}, nil)
	require.Error(t, err)

	e = NewExtractor(&fakeCompleter{err: errors.New("down")}, &memStore{})
	_, err = e.Extract(context.Background(), Turn{}, nil)
	require.Error(t, err)
}

func TestMerge_Dedup(t *testing.T) {
	existing := []core.MemoryItem{{ID: "1", Type: core.MemoryPreference, Content: "Pref B"}}
	candidates := []core.MemoryItem{
		{ID: "2", Type: core.MemoryPreference, Content: "Pref B"},
		{ID: "3", Type: core.MemoryFact, Content: "Fact C"},
		{ID: "4", Type: core.MemoryFact, Content: " Fact C "},
	}

	merged, added := Merge(existing, candidates)
	assert.Equal(t, 1, added)
	require.Len(t, merged, 2)

	count := 0
	for _, m := range merged {
		if m.Content == "Pref B" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, "1", merged[0].ID)
	assert.Equal(t, "3", merged[1].ID)
	assert.Len(t, existing, 1)
}

func TestExtractor_Run(t *testing.T) {
	store := &memStore{items: []core.MemoryItem{{ID: "1", Type: core.MemoryPreference, Content: "Pref B"}}}
	c := &fakeCompleter{reply: `[{"type":"preference","content":"Pref B"}]`}
	e := NewExtractor(c, store)

	added, err := e.Run(context.Background(), "s1", Turn{UserText: "I prefer B"})
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Zero(t, store.saves)

	c.reply = `[{"type":"preference","content":"Pref C"}]`
	added, err = e.Run(context.Background(), "s1", Turn{UserText: "I prefer C"})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, store.saves)
	assert.Len(t, store.items, 2)
}

func TestExtractor_ConcurrentRunsKeepBoth(t *testing.T) {
	store := session.NewFileStore(t.TempDir())
	require.NoError(t, store.SaveMemories("s1", []core.MemoryItem{{ID: "0", Type: core.MemoryFact, Content: "Existing"}}))

	var arrived sync.WaitGroup
	arrived.Add(2)
	runs := []*Extractor{
		NewExtractor(barrierCompleter{reply: `[{"type":"fact","content":"Alpha"}]`, arrived: &arrived}, store),
		NewExtractor(barrierCompleter{reply: `[{"type":"fact","content":"Beta"}]`, arrived: &arrived}, store),
	}

	var g errgroup.Group
	for _, e := range runs {
		g.Go(func() error {
			added, err := e.Run(context.Background(), "s1", Turn{UserText: "remember this"})
			if err == nil && added != 1 {
				err = fmt.Errorf("added %d, want 1", added)
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	items, err := store.LoadMemories("s1")
	require.NoError(t, err)
	contents := make([]string, 0, len(items))
	for _, m := range items {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, "Existing", contents[0])
	assert.ElementsMatch(t, []string{"Existing", "Alpha", "Beta"}, contents)
}
