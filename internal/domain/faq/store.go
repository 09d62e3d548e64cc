package faq

import (
	"context"
	"time"
)

// RecordCache is a shared cache tier for FAQ records, consulted after the
// in-process LRU misses.
type RecordCache interface {
	GetRecord(ctx context.Context, id RowID) (Record, bool, error)
	SaveRecord(ctx context.Context, record Record, ttl time.Duration) error
}

// TrendingStore counts answered questions.
type TrendingStore interface {
	IncrementQuery(ctx context.Context, canonical, display string) error
	TopQueries(ctx context.Context, limit int) ([]TrendingQuery, error)
}

// Store is implemented by backends that provide both cache and trending data.
type Store interface {
	RecordCache
	TrendingStore
}
