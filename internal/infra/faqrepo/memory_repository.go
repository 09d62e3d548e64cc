package faqrepo

import (
	"context"
	"sync"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

// MemoryRepository is an in-memory RecordStore used for tests/dev.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[faq.RowID]faq.Record
}

// NewMemoryRepository constructs a repo seeded with records.
func NewMemoryRepository(records ...faq.Record) *MemoryRepository {
	r := &MemoryRepository{records: make(map[faq.RowID]faq.Record, len(records))}
	for _, rec := range records {
		r.records[rec.ID] = rec
	}
	return r
}

// Put adds or replaces a record.
func (r *MemoryRepository) Put(record faq.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
}

// Get implements faq.RecordStore.
func (r *MemoryRepository) Get(_ context.Context, id faq.RowID) (faq.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok, nil
}

var _ faq.RecordStore = (*MemoryRepository)(nil)
