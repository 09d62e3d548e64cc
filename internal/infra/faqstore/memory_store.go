package faqstore

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

type cachedRecord struct {
	record    faq.Record
	expiresAt time.Time
}

type queryCount struct {
	display string
	count   int64
}

// MemoryStore keeps cached records and trending counters in process memory.
// Used when Valkey is not configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[faq.RowID]cachedRecord
	queries map[string]*queryCount
	now     func() time.Time
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[faq.RowID]cachedRecord),
		queries: make(map[string]*queryCount),
		now:     time.Now,
	}
}

// GetRecord implements faq.RecordCache. Expired entries are dropped on read.
func (s *MemoryStore) GetRecord(_ context.Context, id faq.RowID) (faq.Record, bool, error) {
	s.mu.RLock()
	cached, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return faq.Record{}, false, nil
	}
	if !cached.expiresAt.IsZero() && !s.now().Before(cached.expiresAt) {
		s.mu.Lock()
		delete(s.records, id)
		s.mu.Unlock()
		return faq.Record{}, false, nil
	}
	return cached.record, true, nil
}

// SaveRecord implements faq.RecordCache. A non-positive ttl never expires.
func (s *MemoryStore) SaveRecord(_ context.Context, record faq.Record, ttl time.Duration) error {
	entry := cachedRecord{record: record}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.records[record.ID] = entry
	s.mu.Unlock()
	return nil
}

// IncrementQuery implements faq.TrendingStore. The first display text seen
// for a canonical query is kept.
func (s *MemoryStore) IncrementQuery(_ context.Context, canonical, display string) error {
	if canonical == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	qc, ok := s.queries[canonical]
	if !ok {
		if display == "" {
			display = canonical
		}
		qc = &queryCount{display: display}
		s.queries[canonical] = qc
	}
	qc.count++
	return nil
}

// TopQueries implements faq.TrendingStore, highest count first.
func (s *MemoryStore) TopQueries(_ context.Context, limit int) ([]faq.TrendingQuery, error) {
	s.mu.RLock()
	items := make([]faq.TrendingQuery, 0, len(s.queries))
	for _, qc := range s.queries {
		items = append(items, faq.TrendingQuery{Query: qc.display, Count: qc.count})
	}
	s.mu.RUnlock()

	slices.SortFunc(items, func(a, b faq.TrendingQuery) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Query, b.Query)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

var _ faq.Store = (*MemoryStore)(nil)
