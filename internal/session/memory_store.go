package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/vaccine-scheduler/internal/scheduling"
)

// MemoryStore keeps sessions in a map with lazy expiry, for tests and dev
// mode without Redis.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]memorySession
}

type memorySession struct {
	identity  string
	role      scheduling.Role
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]memorySession),
	}
}

func (m *MemoryStore) Create(ctx context.Context, identity string, role scheduling.Role) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token := uuid.NewString()
	m.sessions[token] = memorySession{
		identity:  identity,
		role:      role,
		expiresAt: time.Now().Add(m.ttl),
	}
	return Session{Token: token, Identity: identity, Role: role}, nil
}

func (m *MemoryStore) Get(ctx context.Context, token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if time.Now().After(s.expiresAt) {
		delete(m.sessions, token)
		return Session{}, ErrSessionNotFound
	}
	return Session{Token: token, Identity: s.identity, Role: s.role}, nil
}

func (m *MemoryStore) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, token)
	return nil
}
