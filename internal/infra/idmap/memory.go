package idmap

import (
	"context"
	"sync"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

// MemoryStore is an in-memory MappingStore used for tests/dev.
type MemoryStore struct {
	mu  sync.RWMutex
	ids map[faq.VectorID]faq.RowID
}

// NewMemoryStore constructs a store seeded with ids.
func NewMemoryStore(ids map[faq.VectorID]faq.RowID) *MemoryStore {
	clone := make(map[faq.VectorID]faq.RowID, len(ids))
	for k, v := range ids {
		clone[k] = v
	}
	return &MemoryStore{ids: clone}
}

// Put adds or replaces a mapping.
func (s *MemoryStore) Put(vectorID faq.VectorID, rowID faq.RowID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[vectorID] = rowID
}

// RowIDFor implements faq.MappingStore.
func (s *MemoryStore) RowIDFor(_ context.Context, id faq.VectorID) (faq.RowID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.ids[id]
	return row, ok, nil
}

var _ faq.MappingStore = (*MemoryStore)(nil)
