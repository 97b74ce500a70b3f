// persistence/memory.go
package persistence

import (
	"context"
	"sync"

	"github.com/wfunc/courtstream/models"
)

// MemoryStore keeps snapshots in-process. It backs tests and serves as
// the degraded fallback when the database is unreachable at startup.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]models.SessionSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]models.SessionSnapshot),
	}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (models.SessionSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.items[Key(sessionID)]
	if !ok {
		return models.SessionSnapshot{}, false, nil
	}
	return snap.Clone(), true, nil
}

func (s *MemoryStore) Set(ctx context.Context, sessionID string, snap models.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[Key(sessionID)] = snap.Clone()
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
