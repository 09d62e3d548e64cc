package faqstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

const defaultTopQueries = 10

// ValkeyStore shares FAQ records and trending counters across replicas.
//
// Keys:
//
//	{prefix}:record:{row_id}     JSON record, expires after the configured TTL
//	{prefix}:trending            sorted set of canonical queries by count
//	{prefix}:display:{canonical} first display text seen for a canonical query
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a store using the given key prefix ("faq" when empty).
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "faq"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// GetRecord implements faq.RecordCache.
func (s *ValkeyStore) GetRecord(ctx context.Context, id faq.RowID) (faq.Record, bool, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.recordKey(id)).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return faq.Record{}, false, nil
	}
	if err != nil {
		return faq.Record{}, false, fmt.Errorf("get cached record %d: %w", id, err)
	}
	var record faq.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return faq.Record{}, false, fmt.Errorf("decode cached record %d: %w", id, err)
	}
	return record, true, nil
}

// SaveRecord implements faq.RecordCache. Sub-second TTLs round up to one second.
func (s *ValkeyStore) SaveRecord(ctx context.Context, record faq.Record, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record %d: %w", record.ID, err)
	}
	set := s.client.B().Set().Key(s.recordKey(record.ID)).Value(valkey.BinaryString(payload))
	var cmd valkey.Completed
	switch {
	case ttl <= 0:
		cmd = set.Build()
	case ttl < time.Second:
		cmd = set.Ex(time.Second).Build()
	default:
		cmd = set.Ex(ttl).Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

// IncrementQuery implements faq.TrendingStore. The counter bump and the
// display text are sent in one round trip.
func (s *ValkeyStore) IncrementQuery(ctx context.Context, canonical, display string) error {
	if canonical == "" {
		return nil
	}
	if display == "" {
		display = canonical
	}
	results := s.client.DoMulti(ctx,
		s.client.B().Zincrby().Key(s.trendingKey()).Increment(1).Member(canonical).Build(),
		s.client.B().Set().Key(s.displayKey(canonical)).Value(display).Nx().Build(),
	)
	if err := results[0].Error(); err != nil {
		return fmt.Errorf("increment trending query: %w", err)
	}
	// SET NX replies nil when the display text already exists.
	if err := results[1].Error(); err != nil && !valkey.IsValkeyNil(err) {
		return fmt.Errorf("store trending display: %w", err)
	}
	return nil
}

// TopQueries implements faq.TrendingStore, highest count first.
func (s *ValkeyStore) TopQueries(ctx context.Context, limit int) ([]faq.TrendingQuery, error) {
	if limit <= 0 {
		limit = defaultTopQueries
	}
	cmd := s.client.B().Zrevrange().Key(s.trendingKey()).Start(0).Stop(int64(limit - 1)).Withscores().Build()
	scores, err := s.client.Do(ctx, cmd).AsZScores()
	if valkey.IsValkeyNil(err) {
		return []faq.TrendingQuery{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load trending queries: %w", err)
	}
	if len(scores) == 0 {
		return []faq.TrendingQuery{}, nil
	}

	keys := make([]string, len(scores))
	for i, z := range scores {
		keys[i] = s.displayKey(z.Member)
	}
	displays := s.displays(ctx, keys)

	out := make([]faq.TrendingQuery, len(scores))
	for i, z := range scores {
		query := z.Member
		if i < len(displays) && displays[i] != "" {
			query = displays[i]
		}
		out[i] = faq.TrendingQuery{Query: query, Count: int64(z.Score)}
	}
	return out, nil
}

// displays fetches display texts in key order. Missing keys and read errors
// yield empty strings so callers fall back to the canonical form.
func (s *ValkeyStore) displays(ctx context.Context, keys []string) []string {
	values, err := s.client.Do(ctx, s.client.B().Mget().Key(keys...).Build()).ToArray()
	if err != nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		if str, err := v.ToString(); err == nil {
			out[i] = str
		}
	}
	return out
}

func (s *ValkeyStore) recordKey(id faq.RowID) string {
	return fmt.Sprintf("%s:record:%d", s.prefix, id)
}

func (s *ValkeyStore) trendingKey() string {
	return s.prefix + ":trending"
}

func (s *ValkeyStore) displayKey(canonical string) string {
	return s.prefix + ":display:" + canonical
}

var _ faq.Store = (*ValkeyStore)(nil)
