package tokenstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps tokens for the lifetime of the process only.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]*Token
}

// NewMemoryStore creates a new in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]*Token),
	}
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = &Token{
		Key:       key,
		Value:     value,
		ExpiresAt: now.Add(ttl),
		UpdatedAt: now,
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tok, ok := m.tokens[key]
	if !ok {
		return nil, ErrTokenNotFound
	}
	if tok.IsExpired() {
		return nil, ErrTokenExpired
	}
	cp := *tok
	return &cp, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, key)
	return nil
}

func (m *MemoryStore) Cleanup(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for k, tok := range m.tokens {
		if tok.IsExpired() {
			delete(m.tokens, k)
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}
