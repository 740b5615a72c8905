package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/quill/internal/core"
)

const (
	ScratchpadFile = "scratchpad.md"
	SummaryFile    = "summary.md"
	MemoriesFile   = "memories.json"

	SummaryHeader = "# Conversation Summary"
)

// Sections of a fresh scratchpad, in template order.
var Sections = []string{"Goals", "Plan", "Progress", "Next", "Decisions"}

var nextHeading = regexp.MustCompile(`(?m)^## `)

var _ core.SessionStore = (*FileStore)(nil)

// FileStore keeps per-session side files under <root>/<session-id>/.
// Writers of one session are serialized.
type FileStore struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root, locks: make(map[string]*sync.Mutex)}
}

func (s *FileStore) Dir(sessionID string) (string, error) {
	if sessionID == "" || sessionID == "." || sessionID == ".." || strings.ContainsAny(sessionID, `/\`) {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(s.root, sessionID), nil
}

func (s *FileStore) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Scratchpad returns the scratchpad, or the empty template if none exists yet.
func (s *FileStore) Scratchpad(sessionID string) (string, error) {
	defer s.lock(sessionID)()
	return s.readScratchpad(sessionID)
}

// UpdateSection replaces the body of "## <section>" up to the next "## "
// heading, or appends the section when it is missing.
func (s *FileStore) UpdateSection(sessionID, section, body string) error {
	defer s.lock(sessionID)()

	doc, err := s.readScratchpad(sessionID)
	if err != nil {
		return err
	}
	return s.write(sessionID, ScratchpadFile, ReplaceSection(doc, section, body))
}

// AppendTimestamped adds a "## <RFC3339>" entry at the end of the scratchpad.
func (s *FileStore) AppendTimestamped(sessionID, text string) error {
	defer s.lock(sessionID)()

	doc, err := s.readScratchpad(sessionID)
	if err != nil {
		return err
	}

	entry := fmt.Sprintf("## %s\n%s\n", time.Now().UTC().Format(time.RFC3339), strings.TrimSpace(text))
	return s.write(sessionID, ScratchpadFile, ensureBlankLine(doc)+entry)
}

func (s *FileStore) Summary(sessionID string) (string, error) {
	defer s.lock(sessionID)()

	data, err := s.read(sessionID, SummaryFile)
	if err != nil || data == nil {
		return "", err
	}
	body := strings.TrimPrefix(string(data), SummaryHeader)
	return strings.TrimSpace(body), nil
}

func (s *FileStore) WriteSummary(sessionID, text string) error {
	defer s.lock(sessionID)()
	return s.write(sessionID, SummaryFile, SummaryHeader+"\n\n"+strings.TrimSpace(text)+"\n")
}

func (s *FileStore) LoadMemories(sessionID string) ([]core.MemoryItem, error) {
	defer s.lock(sessionID)()
	return s.loadMemories(sessionID)
}

func (s *FileStore) SaveMemories(sessionID string, items []core.MemoryItem) error {
	defer s.lock(sessionID)()
	return s.saveMemories(sessionID, items)
}

// UpdateMemories replaces the memories with fn(current) under the session
// lock. A nil result from fn leaves the file untouched.
func (s *FileStore) UpdateMemories(sessionID string, fn func(current []core.MemoryItem) []core.MemoryItem) error {
	defer s.lock(sessionID)()

	current, err := s.loadMemories(sessionID)
	if err != nil {
		return err
	}
	next := fn(current)
	if next == nil {
		return nil
	}
	return s.saveMemories(sessionID, next)
}

func (s *FileStore) loadMemories(sessionID string) ([]core.MemoryItem, error) {
	data, err := s.read(sessionID, MemoriesFile)
	if err != nil || data == nil {
		return nil, err
	}

	var items []core.MemoryItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", MemoriesFile, err)
	}
	return items, nil
}

func (s *FileStore) saveMemories(sessionID string, items []core.MemoryItem) error {
	if items == nil {
		items = []core.MemoryItem{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding memories: %w", err)
	}
	return s.write(sessionID, MemoriesFile, string(data)+"\n")
}

func (s *FileStore) readScratchpad(sessionID string) (string, error) {
	data, err := s.read(sessionID, ScratchpadFile)
	if err != nil {
		return "", err
	}
	if data == nil {
		return Template(), nil
	}
	return string(data), nil
}

// read returns nil without error when the file does not exist.
func (s *FileStore) read(sessionID, name string) ([]byte, error) {
	dir, err := s.Dir(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

func (s *FileStore) write(sessionID, name, content string) error {
	dir, err := s.Dir(sessionID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	path := filepath.Join(dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

func Template() string {
	var b strings.Builder
	b.WriteString("# Scratchpad\n\n")
	for _, name := range Sections {
		b.WriteString("## " + name + "\n\n")
	}
	return b.String()
}

// ReplaceSection swaps the body of a "## <section>" block. Appends the
// section at the end when the document has no such heading.
func ReplaceSection(doc, section, body string) string {
	block := "## " + section + "\n" + strings.TrimSpace(body) + "\n\n"

	header := regexp.MustCompile(`(?m)^## ` + regexp.QuoteMeta(section) + `[ \t]*(\n|$)`)
	loc := header.FindStringIndex(doc)
	if loc == nil {
		return ensureBlankLine(doc) + block
	}

	end := len(doc)
	if next := nextHeading.FindStringIndex(doc[loc[1]:]); next != nil {
		end = loc[1] + next[0]
	}
	return doc[:loc[0]] + block + doc[end:]
}

func ensureBlankLine(doc string) string {
	switch {
	case doc == "":
		return ""
	case strings.HasSuffix(doc, "\n\n"):
		return doc
	case strings.HasSuffix(doc, "\n"):
		return doc + "\n"
	}
	return doc + "\n\n"
}
