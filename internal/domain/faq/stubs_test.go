package faq

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		MinQueryLength:      5,
		MaxQueryLength:      500,
		TopK:                5,
		SimilarityThreshold: 1.2,
		ContextLimit:        10000,
		CacheSize:           1000,
		Prompt:              "You are a helpful assistant.",
		FallbackAnswer:      "Sorry, I don't have an answer to that question.",
		TopRecommendations:  10,
	}
}

type stubEmbedder struct {
	mu     sync.Mutex
	calls  int
	inputs []string
	err    error
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.inputs = append(s.inputs, texts...)
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type stubIndex struct {
	mu        sync.Mutex
	neighbors []Neighbor
	err       error
	calls     int
	lastK     int
}

func (s *stubIndex) Search(_ context.Context, _ []float32, k int) ([]Neighbor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastK = k
	if s.err != nil {
		return nil, s.err
	}
	return s.neighbors, nil
}

type stubMappings struct {
	mu    sync.Mutex
	ids   map[VectorID]RowID
	calls map[VectorID]int
	err   error
}

func newStubMappings(ids map[VectorID]RowID) *stubMappings {
	return &stubMappings{ids: ids, calls: map[VectorID]int{}}
}

func (s *stubMappings) RowIDFor(_ context.Context, id VectorID) (RowID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[id]++
	if s.err != nil {
		return 0, false, s.err
	}
	row, ok := s.ids[id]
	return row, ok, nil
}

type stubRecords struct {
	mu      sync.Mutex
	records map[RowID]Record
	calls   map[RowID]int
	err     error
}

func newStubRecords(records ...Record) *stubRecords {
	s := &stubRecords{records: map[RowID]Record{}, calls: map[RowID]int{}}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *stubRecords) Get(_ context.Context, id RowID) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[id]++
	if s.err != nil {
		return Record{}, false, s.err
	}
	r, ok := s.records[id]
	return r, ok, nil
}

func (s *stubRecords) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

type stubGenerator struct {
	calls    int
	messages []Message
	answer   string
	err      error
	block    bool
}

func (s *stubGenerator) Generate(ctx context.Context, messages []Message) (string, error) {
	s.calls++
	s.messages = messages
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

type stubCache struct {
	records map[RowID]Record
	saved   int
	ttl     time.Duration
}

func (s *stubCache) GetRecord(_ context.Context, id RowID) (Record, bool, error) {
	r, ok := s.records[id]
	return r, ok, nil
}

func (s *stubCache) SaveRecord(_ context.Context, record Record, ttl time.Duration) error {
	if s.records == nil {
		s.records = map[RowID]Record{}
	}
	s.records[record.ID] = record
	s.saved++
	s.ttl = ttl
	return nil
}

type stubTrending struct {
	canonical []string
	display   []string
	err       error
	top       []TrendingQuery
}

func (s *stubTrending) IncrementQuery(_ context.Context, canonical, display string) error {
	s.canonical = append(s.canonical, canonical)
	s.display = append(s.display, display)
	return s.err
}

func (s *stubTrending) TopQueries(_ context.Context, limit int) ([]TrendingQuery, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.top) {
		return s.top[:limit], nil
	}
	return s.top, nil
}
