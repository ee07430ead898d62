package audit

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Store persists activity log entries.
type Store interface {
	AppendEntry(ctx context.Context, e Entry) error
	// ListEntries returns entries matching f, newest first, plus the total
	// number of matches.
	ListEntries(ctx context.Context, f Filter, offset, limit int) ([]Entry, int, error)
	GetEntry(ctx context.Context, id string) (Entry, error)
	// ArchiveEntry marks an immutable, not yet archived entry as archived.
	// Any other entry yields ErrNotModifiable.
	ArchiveEntry(ctx context.Context, id string) (Entry, error)
}

// Directory resolves actor display names for listings.
type Directory interface {
	Usernames(ctx context.Context, ids []string) (map[string]string, error)
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	byID    map[string]int

	// FailWith, when set, is returned by AppendEntry.
	FailWith error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

func (s *MemoryStore) AppendEntry(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	e.ActorName = ""
	e.Metadata = cloneMetadata(e.Metadata)
	s.byID[e.ID] = len(s.entries)
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemoryStore) ListEntries(_ context.Context, f Filter, offset, limit int) ([]Entry, int, error) {
	if offset < 0 || limit < 0 {
		return nil, 0, fmt.Errorf("%w: offset and limit must not be negative", ErrInvalidInput)
	}
	s.mu.RLock()
	matched := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		e.Metadata = cloneMetadata(e.Metadata)
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	total := len(matched)
	if offset >= total {
		return []Entry{}, total, nil
	}
	end := total
	if limit < total-offset {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

func (s *MemoryStore) GetEntry(_ context.Context, id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e := s.entries[idx]
	e.Metadata = cloneMetadata(e.Metadata)
	return e, nil
}

func (s *MemoryStore) ArchiveEntry(_ context.Context, id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e := &s.entries[idx]
	if !e.Immutable || e.Archived {
		return Entry{}, ErrNotModifiable
	}
	e.Archived = true
	out := *e
	out.Metadata = cloneMetadata(out.Metadata)
	return out, nil
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
