// Package session stores uploaded tables between plan and execute
// calls. A store maps an opaque id to the current table; planners read
// it, successful executions write it back. Failed executions never
// touch the store.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shpitdev/reshape/pkg/table"
)

// ErrNotFound is returned for ids the store has never seen or has
// already deleted.
var ErrNotFound = errors.New("session not found")

// Session is one uploaded table under transformation.
type Session struct {
	ID        string       `json:"id"`
	Source    string       `json:"source,omitempty"`
	Table     *table.Table `json:"table"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewID mints an opaque session id.
func NewID() string { return uuid.NewString() }

// Clone returns a deep copy. The table is cloned too, so callers can
// mutate their copy without touching stored state.
func (s *Session) Clone() *Session {
	cp := *s
	if s.Table != nil {
		cp.Table = s.Table.Clone()
	}
	return &cp
}

// Store is the session persistence contract. Implementations return
// data the caller may mutate freely.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// Memory is an in-process Store. Sessions are cloned on the way in and
// on the way out.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*Session)}
}

func (m *Memory) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *Memory) Put(_ context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return errors.New("session id is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}
