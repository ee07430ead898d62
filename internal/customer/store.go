package customer

import (
	"context"
	"strings"
	"sync"
	"time"

	"shopadmin.app/internal/ids"
)

// Store persists customers. Implementations return ErrNotFound for
// unknown ids or emails and ErrConflict for a taken email.
type Store interface {
	CreateCustomer(ctx context.Context, c Customer) (Customer, error)
	GetCustomer(ctx context.Context, id string) (Customer, error)
	FindCustomerByEmail(ctx context.Context, email string) (Customer, error)
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps customers in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]Customer
	byEmail map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]Customer),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) CreateCustomer(_ context.Context, c Customer) (Customer, error) {
	key := strings.ToLower(c.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[key]; taken {
		return Customer{}, ErrConflict
	}
	if c.ID == "" {
		c.ID = ids.New()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	s.byID[c.ID] = c
	s.byEmail[key] = c.ID
	return c, nil
}

func (s *MemoryStore) GetCustomer(_ context.Context, id string) (Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) FindCustomerByEmail(_ context.Context, email string) (Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return s.byID[id], nil
}
