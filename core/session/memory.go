package session

import "sync"

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore constructs an in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[string]Session),
	}
}

// Get returns the session for a user if one exists.
func (m *memoryStore) Get(userID string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[userID]
	return s, ok
}

// GetOrCreate returns the existing session or stores a fresh one.
func (m *memoryStore) GetOrCreate(userID string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		return s
	}
	s := New()
	m.sessions[userID] = s
	return s
}

// Put replaces the stored session for a user.
func (m *memoryStore) Put(userID string, s Session) {
	if s.State == nil {
		s = New()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s
}

// Reset unconditionally replaces any session with a fresh one.
func (m *memoryStore) Reset(userID string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := New()
	m.sessions[userID] = s
	return s
}

// Clear removes the session for a user; absent sessions are ignored.
func (m *memoryStore) Clear(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
}

// Exists reports whether the user has an open session.
func (m *memoryStore) Exists(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[userID]
	return ok
}

// Len returns the number of open sessions.
func (m *memoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
