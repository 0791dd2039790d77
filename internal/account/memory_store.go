package account

import (
	"context"
	"sync"
)

// MemoryStore keeps accounts in a map, for tests and dev mode.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]Account)}
}

func (m *MemoryStore) Create(ctx context.Context, a Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[a.Username]; ok {
		return ErrUsernameTaken
	}
	m.accounts[a.Username] = a
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, username string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[username]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}
