package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Manager creates and looks up sessions. Sessions live in memory only;
// a restart resets all of them, matching the no-persisted-state contract
// of the storefront.
type Manager struct {
	collaborators Collaborators

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(c Collaborators) *Manager {
	return &Manager{
		collaborators: c,
		sessions:      make(map[string]*Session),
	}
}

// Create builds a new session with a fresh ID and loads its catalog.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()

	s, err := New(id, m.collaborators)
	if err != nil {
		return nil, err
	}
	if err := s.Open(ctx); err != nil {
		return nil, fmt.Errorf("open session %s: %w", id, err)
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete drops a session. Dropping an unknown ID is a no-op.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
