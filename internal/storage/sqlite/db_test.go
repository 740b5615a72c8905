package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandevgo/quill/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMessagesRepo_AddAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMessagesRepo(newTestDB(t))

	msgs := []core.Message{
		{Role: core.RoleUser, Content: "hi"},
		{Role: core.RoleAssistant, Content: "", ToolCalls: []core.ToolCall{{ID: "c1", Type: "function", Function: core.FunctionCall{Name: "read_doc", Arguments: `{"path":"a.md"}`}}}},
		{Role: core.RoleTool, Content: `{"ok":true}`, ToolCallID: "c1"},
		{Role: core.RoleAssistant, Content: "done", Reasoning: "looked it up"},
	}
	for _, m := range msgs {
		require.NoError(t, repo.AddMessage(ctx, "s1", m))
	}
	require.NoError(t, repo.AddMessage(ctx, "other", core.Message{Role: core.RoleUser, Content: "x"}))

	all, err := repo.GetMessages(ctx, "s1", 0)
	require.NoError(t, err)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].StoreID, all[i-1].StoreID)
	}
	assert.Equal(t, msgs, withoutIDs(all))

	tail, err := repo.GetMessages(ctx, "s1", 2)
	require.NoError(t, err)
	assert.Equal(t, msgs[2:], withoutIDs(tail))
}

func withoutIDs(msgs []core.Message) []core.Message {
	out := make([]core.Message, len(msgs))
	for i, m := range msgs {
		m.StoreID = 0
		out[i] = m
	}
	return out
}

func contents(msgs []core.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func addAll(t *testing.T, repo *MessagesRepo, session string, texts ...string) {
	t.Helper()
	for _, c := range texts {
		require.NoError(t, repo.AddMessage(context.Background(), session, core.Message{Role: core.RoleUser, Content: c}))
	}
}

func TestMessagesRepo_CompactMessages(t *testing.T) {
	ctx := context.Background()
	repo := NewMessagesRepo(newTestDB(t))
	addAll(t, repo, "s1", "m1", "m2", "m3", "m4", "m5")

	history, err := repo.GetMessages(ctx, "s1", 0)
	require.NoError(t, err)

	summary := core.Message{Role: core.RoleSystem, Content: "summary of m1-m3"}
	done, err := repo.CompactMessages(ctx, "s1", history[2].StoreID, summary)
	require.NoError(t, err)
	assert.True(t, done)

	got, err := repo.GetMessages(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"summary of m1-m3", "m4", "m5"}, contents(got))
	assert.Equal(t, history[2].StoreID, got[0].StoreID)
	assert.Equal(t, core.RoleSystem, got[0].Role)

	t.Run("nothing to drop", func(t *testing.T) {
		done, err := repo.CompactMessages(ctx, "s1", 0, summary)
		require.NoError(t, err)
		assert.False(t, done)

		done, err = repo.CompactMessages(ctx, "empty", history[4].StoreID, summary)
		require.NoError(t, err)
		assert.False(t, done)
		got, err := repo.GetMessages(ctx, "empty", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMessagesRepo_CompactStaleSnapshots(t *testing.T) {
	ctx := context.Background()
	repo := NewMessagesRepo(newTestDB(t))
	for i := 1; i <= 20; i++ {
		addAll(t, repo, "s1", fmt.Sprintf("m%d", i))
	}

	first, err := repo.GetMessages(ctx, "s1", 0)
	require.NoError(t, err)
	addAll(t, repo, "s1", "m21", "m22")
	second, err := repo.GetMessages(ctx, "s1", 0)
	require.NoError(t, err)
	addAll(t, repo, "s1", "m23")

	done, err := repo.CompactMessages(ctx, "s1", first[13].StoreID, core.Message{Role: core.RoleAssistant, Content: "S1"})
	require.NoError(t, err)
	assert.True(t, done)

	// The second snapshot predates the first compaction but reaches further.
	done, err = repo.CompactMessages(ctx, "s1", second[15].StoreID, core.Message{Role: core.RoleAssistant, Content: "S2"})
	require.NoError(t, err)
	assert.True(t, done)

	got, err := repo.GetMessages(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"S2", "m17", "m18", "m19", "m20", "m21", "m22", "m23"}, contents(got))

	t.Run("older boundary after newer summary", func(t *testing.T) {
		done, err := repo.CompactMessages(ctx, "s1", first[13].StoreID, core.Message{Role: core.RoleAssistant, Content: "S0"})
		require.NoError(t, err)
		assert.False(t, done)

		got, err := repo.GetMessages(ctx, "s1", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"S2", "m17", "m18", "m19", "m20", "m21", "m22", "m23"}, contents(got))
	})
}

func TestDocumentsRepo_SearchChunks(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentsRepo(newTestDB(t))
	now := time.Now()

	require.NoError(t, repo.UpsertDocument(ctx, core.Document{
		Path: "Team/Docs/deploy.md", Title: "Deploy", ModTime: now,
		Chunks: []string{"How we ship releases.", "Rollback steps for a failed deploy."},
	}))
	require.NoError(t, repo.UpsertDocument(ctx, core.Document{
		Path: "Notes/lunch.md", Title: "Lunch", ModTime: now,
		Chunks: []string{"Pizza on Fridays."},
	}))

	res, err := repo.SearchChunks(ctx, []string{"rollback", "deploy"}, 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Team/Docs/deploy.md", res[0].Path)
	assert.Equal(t, "Rollback steps for a failed deploy.", res[0].Snippet)
	assert.Equal(t, float64(4), res[0].Score)

	none, err := repo.SearchChunks(ctx, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, none)

	t.Run("upsert replaces chunks", func(t *testing.T) {
		require.NoError(t, repo.UpsertDocument(ctx, core.Document{
			Path: "Notes/lunch.md", Title: "Lunch", ModTime: now.Add(time.Minute),
			Chunks: []string{"Tacos on Fridays."},
		}))
		res, err := repo.SearchChunks(ctx, []string{"pizza"}, 5)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("mod times and delete", func(t *testing.T) {
		mods, err := repo.DocumentModTimes(ctx)
		require.NoError(t, err)
		assert.Len(t, mods, 2)
		assert.True(t, mods["Notes/lunch.md"].Equal(now.Add(time.Minute)))

		require.NoError(t, repo.DeleteDocuments(ctx, []string{"Notes/lunch.md"}))
		res, err := repo.SearchChunks(ctx, []string{"tacos"}, 5)
		require.NoError(t, err)
		assert.Empty(t, res)
	})
}
