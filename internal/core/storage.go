package core

import (
	"context"
	"time"
)

type MessagesRepository interface {
	AddMessage(ctx context.Context, sessionID string, msg Message) error
	// GetMessages returns the latest limit messages in order. limit <= 0 returns all.
	GetMessages(ctx context.Context, sessionID string, limit int) ([]Message, error)
	// CompactMessages replaces every message up to and including row throughID
	// with summary in one step. It reports false without changes when that
	// row is already covered by a stored summary.
	CompactMessages(ctx context.Context, sessionID string, throughID int64, summary Message) (bool, error)
}

type Document struct {
	Path    string
	Title   string
	Tags    []string
	ModTime time.Time
	Chunks  []string
}

type DocumentsRepository interface {
	UpsertDocument(ctx context.Context, doc Document) error
	DocumentModTimes(ctx context.Context) (map[string]time.Time, error)
	DeleteDocuments(ctx context.Context, paths []string) error
	SearchChunks(ctx context.Context, terms []string, limit int) ([]DocSlice, error)
}

type SessionStore interface {
	UpdateSection(sessionID, section, body string) error
	AppendTimestamped(sessionID, text string) error
	WriteSummary(sessionID, text string) error
	LoadMemories(sessionID string) ([]MemoryItem, error)
	SaveMemories(sessionID string, items []MemoryItem) error
	// UpdateMemories applies fn to the stored memories atomically per
	// session. A nil result from fn keeps the stored set.
	UpdateMemories(sessionID string, fn func(current []MemoryItem) []MemoryItem) error
}
