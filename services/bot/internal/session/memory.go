package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in-process. Suitable for a single bot
// instance; use the Redis store when running more than one.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore builds an in-memory session store with the given TTL.
// A non-positive TTL falls back to DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		sessions: make(map[int64]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the live session for a chat. Expired sessions are dropped
// on read.
func (m *MemoryStore) Get(_ context.Context, chatID int64) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	if !ok {
		return Session{}, false, nil
	}
	if m.now().Sub(s.UpdatedAt) > m.ttl {
		delete(m.sessions, chatID)
		return Session{}, false, nil
	}
	return s, true, nil
}

// Save stores the session and refreshes its TTL clock.
func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.UpdatedAt = m.now().UTC()
	m.sessions[s.ChatID] = s
	return nil
}

// Delete removes the session for a chat.
func (m *MemoryStore) Delete(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
	return nil
}
