package session

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/werkbank-ai/werkbank/pkg/api"
)

// state is the per-session record. Serialized form and in-memory form
// are the same shape.
type state struct {
	ID    string        `json:"id"`
	Turns []api.Turn    `json:"turns"`
	Files []api.FileRef `json:"files,omitempty"`
}

type entry struct {
	state   *state
	lruElem *list.Element
}

// MemoryStore is an in-memory Store with optional LRU eviction. Sessions
// are lost on restart; Serialize/Load exist so callers can persist
// sessions externally if they need to survive one.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	lruList  *list.List // front = most recently used
	maxSize  int        // 0 = unlimited
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory store. If maxSize is 0, the store
// grows without limit; otherwise the least recently used session is
// evicted when the limit is reached.
func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*entry),
		lruList:  list.New(),
		maxSize:  maxSize,
	}
}

// getOrCreate returns the session entry, creating it if absent, and
// marks it most recently used. Must be called with s.mu held.
func (s *MemoryStore) getOrCreate(sessionID string) *entry {
	if e, ok := s.sessions[sessionID]; ok {
		s.lruList.MoveToFront(e.lruElem)
		return e
	}

	if s.maxSize > 0 && len(s.sessions) >= s.maxSize {
		s.evictOldest()
	}

	e := &entry{
		state:   &state{ID: sessionID},
		lruElem: s.lruList.PushFront(sessionID),
	}
	s.sessions[sessionID] = e
	return e
}

func (s *MemoryStore) AppendTurns(_ context.Context, sessionID string, turns ...api.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getOrCreate(sessionID)
	e.state.Turns = append(e.state.Turns, turns...)
	return nil
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]api.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	out := make([]api.Turn, len(e.state.Turns))
	copy(out, e.state.Turns)
	return out, nil
}

// AddFiles records the uploads and appends a system turn naming them, so
// later model calls see the upload event at its place in the history.
func (s *MemoryStore) AddFiles(_ context.Context, sessionID string, files []api.FileRef) error {
	if len(files) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getOrCreate(sessionID)
	e.state.Files = append(e.state.Files, files...)

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	e.state.Turns = append(e.state.Turns, api.Turn{
		Role:    api.RoleSystem,
		Content: fmt.Sprintf("User has uploaded the following files: %s", strings.Join(names, ", ")),
	})
	return nil
}

func (s *MemoryStore) ListFiles(_ context.Context, sessionID string) ([]api.FileRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	out := make([]api.FileRef, len(e.state.Files))
	copy(out, e.state.Files)
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	s.lruList.Remove(e.lruElem)
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) Serialize(_ context.Context, sessionID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return json.Marshal(&state{ID: sessionID})
	}
	return json.Marshal(e.state)
}

func (s *MemoryStore) Load(_ context.Context, sessionID string, data []byte) error {
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode session state: %w", err)
	}
	st.ID = sessionID

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getOrCreate(sessionID)
	e.state = &st
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// evictOldest removes the least recently used session.
// Must be called with s.mu held.
func (s *MemoryStore) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}
	id := back.Value.(string)
	s.lruList.Remove(back)
	delete(s.sessions, id)
}
