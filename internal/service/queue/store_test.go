package queue

import (
	"github.com/sandevgo/quill/internal/core"
)

type fakeStore struct {
	calls []string
}

func (f *fakeStore) UpdateSection(sessionID, section, body string) error {
	f.calls = append(f.calls, "section:"+sessionID+":"+section+":"+body)
	return nil
}

func (f *fakeStore) AppendTimestamped(sessionID, text string) error {
	f.calls = append(f.calls, "append:"+sessionID+":"+text)
	return nil
}

func (f *fakeStore) WriteSummary(sessionID, text string) error { return nil }

func (f *fakeStore) LoadMemories(sessionID string) ([]core.MemoryItem, error) { return nil, nil }

func (f *fakeStore) SaveMemories(sessionID string, items []core.MemoryItem) error { return nil }

func (f *fakeStore) UpdateMemories(string, func([]core.MemoryItem) []core.MemoryItem) error {
	return nil
}
