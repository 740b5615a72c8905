package state

import (
	"context"
	"slices"
	"sync"

	"github.com/sandevgo/quill/internal/core"
)

type selector interface {
	Set(ctx context.Context, spec string) error
}

var _ core.GlobalState = (*GlobalState)(nil)

type sessionState struct {
	mode    core.Mode
	clients []string
	scope   string
}

// GlobalState holds the runtime choices made through commands: the default
// model and, per session, the mode, the selected tool clients and the
// retrieval scope.
type GlobalState struct {
	selector    selector
	defaultMode core.Mode

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

func NewGlobalState(selector selector, defaultMode core.Mode) *GlobalState {
	if defaultMode == "" {
		defaultMode = core.ModeChat
	}
	return &GlobalState{
		selector:    selector,
		defaultMode: defaultMode,
		sessions:    make(map[string]*sessionState),
	}
}

func (s *GlobalState) ChangeModel(ctx context.Context, model string) error {
	return s.selector.Set(ctx, model)
}

func (s *GlobalState) session(sessionID string) *sessionState {
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &sessionState{mode: s.defaultMode}
		s.sessions[sessionID] = st
	}
	return st
}

func (s *GlobalState) SetMode(sessionID string, mode core.Mode) error {
	if _, err := core.ParseMode(string(mode)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session(sessionID).mode = mode
	return nil
}

func (s *GlobalState) Mode(sessionID string) core.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.sessions[sessionID]; ok {
		return st.mode
	}
	return s.defaultMode
}

// SelectClients replaces the selection. Ids are deduplicated and sorted.
func (s *GlobalState) SelectClients(sessionID string, ids []string) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session(sessionID).clients = ids
}

func (s *GlobalState) SelectedClients(sessionID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.sessions[sessionID]; ok {
		return slices.Clone(st.clients)
	}
	return nil
}

func (s *GlobalState) SetScope(sessionID, scope string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session(sessionID).scope = scope
}

func (s *GlobalState) Scope(sessionID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.sessions[sessionID]; ok {
		return st.scope
	}
	return ""
}
