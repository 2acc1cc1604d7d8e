package activity

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore keeps the activity stream in process memory. Entries are
// stored oldest-first; reads return newest-first copies.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newestFirst(func(Entry) bool { return true }, limit), nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newestFirst(func(e Entry) bool { return e.UserID == userID }, limit), nil
}

func (s *InMemoryStore) newestFirst(match func(Entry) bool, limit int) []Entry {
	var out []Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if match(s.entries[i]) {
			out = append(out, s.entries[i])
		}
	}
	return out
}
