package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"shopadmin.app/internal/ids"
)

var _ AccountStore = (*MemoryStore)(nil)

// MemoryStore implements AccountStore in process memory. Superadmin checks
// run under the same lock as the mutation.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryStore creates an empty account store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]Account)}
}

func (s *MemoryStore) CreateAccount(ctx context.Context, acc Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usernameTaken(acc.Username, "") {
		return Account{}, ErrConflict
	}
	if acc.ID == "" {
		acc.ID = ids.New()
	}
	now := time.Now().UTC()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	s.accounts[acc.ID] = acc
	return acc, nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if strings.EqualFold(acc.Username, username) {
			return acc, nil
		}
	}
	return Account{}, ErrNotFound
}

func (s *MemoryStore) ListAccounts(ctx context.Context) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	if err := CheckUpdate(acc, upd); err != nil {
		return Account{}, err
	}
	if upd.Username != nil {
		if s.usernameTaken(*upd.Username, id) {
			return Account{}, ErrConflict
		}
		acc.Username = *upd.Username
	}
	if upd.PasswordHash != nil {
		acc.PasswordHash = *upd.PasswordHash
	}
	if upd.Role != nil {
		acc.Role = *upd.Role
	}
	acc.UpdatedAt = time.Now().UTC()
	s.accounts[id] = acc
	return acc, nil
}

func (s *MemoryStore) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	if err := CheckDelete(acc); err != nil {
		return err
	}
	delete(s.accounts, id)
	return nil
}

func (s *MemoryStore) usernameTaken(username, exceptID string) bool {
	for id, acc := range s.accounts {
		if id != exceptID && strings.EqualFold(acc.Username, username) {
			return true
		}
	}
	return false
}

// Usernames maps account ids to usernames. Unknown ids are omitted.
func (s *MemoryStore) Usernames(ctx context.Context, accountIDs []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(accountIDs))
	for _, id := range accountIDs {
		if acc, ok := s.accounts[id]; ok {
			out[id] = acc.Username
		}
	}
	return out, nil
}
