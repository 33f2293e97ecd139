package auth

import (
	"context"
	"sync"
	"time"

	"github.com/postboard/postboard/internal/shared"
)

// MemoryRepository is a process-local Repository enforcing the same
// uniqueness rules as the PostgreSQL schema.
type MemoryRepository struct {
	mu         sync.RWMutex
	nextID     int64
	byUsername map[string]*Account
	byEmail    map[string]*Account
	now        func() time.Time
}

// NewMemoryRepository returns an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byUsername: make(map[string]*Account),
		byEmail:    make(map[string]*Account),
		now:        time.Now,
	}
}

// FindByUsername implements Repository.
func (m *MemoryRepository) FindByUsername(_ context.Context, username string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byUsername[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

// FindByEmail implements Repository.
func (m *MemoryRepository) FindByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

// Insert implements Repository.
func (m *MemoryRepository) Insert(_ context.Context, account Account) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byUsername[account.Username]; taken {
		return nil, shared.ErrDuplicateIdentity
	}
	if _, taken := m.byEmail[account.Email]; taken {
		return nil, shared.ErrDuplicateIdentity
	}
	m.nextID++
	account.ID = m.nextID
	account.CreatedAt = m.now().UTC()
	stored := account
	m.byUsername[stored.Username] = &stored
	m.byEmail[stored.Email] = &stored
	clone := stored
	return &clone, nil
}

var _ Repository = (*MemoryRepository)(nil)
