package faq

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	apperrors "github.com/yanqian/faq-rag/pkg/errors"
)

func newTestRetriever(t *testing.T, cfg Config, index *stubIndex, mappings *stubMappings, records *stubRecords, shared RecordCache) (*Retriever, *stubEmbedder) {
	t.Helper()
	embedder := &stubEmbedder{}
	r, err := NewRetriever(cfg, embedder, index, mappings, records, shared, discardLogger())
	if err != nil {
		t.Fatalf("new retriever: %v", err)
	}
	return r, embedder
}

func TestRetrieveStopsAtFirstDistanceAboveThreshold(t *testing.T) {
	index := &stubIndex{neighbors: []Neighbor{
		{ID: 10, Distance: 0.3},
		{ID: 11, Distance: 0.9},
		{ID: 12, Distance: 1.5},
		{ID: 13, Distance: 2.0},
	}}
	mappings := newStubMappings(map[VectorID]RowID{10: 1, 11: 2, 12: 3, 13: 4})
	records := newStubRecords(
		Record{ID: 1, Question: "q1", Answer: "a1"},
		Record{ID: 2, Question: "q2", Answer: "a2"},
		Record{ID: 3, Question: "q3", Answer: "a3"},
		Record{ID: 4, Question: "q4", Answer: "a4"},
	)
	r, _ := newTestRetriever(t, testConfig(), index, mappings, records, nil)

	got, err := r.Retrieve(context.Background(), "what time do parks open?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].RowID != 1 || got[1].RowID != 2 {
		t.Fatalf("expected rows 1 and 2, got %+v", got)
	}
	if mappings.calls[12] != 0 || mappings.calls[13] != 0 {
		t.Fatalf("mapping store queried past the cutoff: %v", mappings.calls)
	}
	if records.calls[3] != 0 || records.calls[4] != 0 {
		t.Fatalf("record store queried past the cutoff: %v", records.calls)
	}
	if index.lastK != 5 {
		t.Fatalf("expected top-k 5, got %d", index.lastK)
	}
}

func TestRetrieveDistanceEqualToThresholdIsKept(t *testing.T) {
	index := &stubIndex{neighbors: []Neighbor{{ID: 1, Distance: 1.0}}}
	mappings := newStubMappings(map[VectorID]RowID{1: 7})
	records := newStubRecords(Record{ID: 7, Question: "q", Answer: "a"})
	cfg := testConfig()
	cfg.SimilarityThreshold = 1.0
	r, _ := newTestRetriever(t, cfg, index, mappings, records, nil)

	got, err := r.Retrieve(context.Background(), "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected boundary candidate to be kept, got %+v", got)
	}
}

func TestRetrieveSortsUnorderedNeighbors(t *testing.T) {
	index := &stubIndex{neighbors: []Neighbor{
		{ID: 2, Distance: 0.8},
		{ID: 3, Distance: 1.9},
		{ID: 1, Distance: 0.2},
	}}
	mappings := newStubMappings(map[VectorID]RowID{1: 100, 2: 200, 3: 300})
	records := newStubRecords(
		Record{ID: 100, Question: "near", Answer: "a"},
		Record{ID: 200, Question: "mid", Answer: "b"},
	)
	r, _ := newTestRetriever(t, testConfig(), index, mappings, records, nil)

	got, err := r.Retrieve(context.Background(), "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].RowID != 100 || got[1].RowID != 200 {
		t.Fatalf("expected nearest-first rows 100, 200; got %+v", got)
	}
	if mappings.calls[3] != 0 {
		t.Fatalf("candidate beyond threshold was mapped")
	}
	if index.neighbors[0].ID != 2 {
		t.Fatalf("index result slice was reordered in place")
	}
}

func TestRetrieveMissingMappingFails(t *testing.T) {
	index := &stubIndex{neighbors: []Neighbor{{ID: 1, Distance: 0.1}, {ID: 99, Distance: 0.2}}}
	mappings := newStubMappings(map[VectorID]RowID{1: 1})
	records := newStubRecords(Record{ID: 1, Question: "q", Answer: "a"})
	r, _ := newTestRetriever(t, testConfig(), index, mappings, records, nil)

	_, err := r.Retrieve(context.Background(), "query")
	if !apperrors.IsCode(err, CodeMappingNotFound) {
		t.Fatalf("expected %s, got %v", CodeMappingNotFound, err)
	}
}

func TestRetrieveMissingRecordFails(t *testing.T) {
	index := &stubIndex{neighbors: []Neighbor{{ID: 1, Distance: 0.1}}}
	mappings := newStubMappings(map[VectorID]RowID{1: 5})
	r, _ := newTestRetriever(t, testConfig(), index, mappings, newStubRecords(), nil)

	_, err := r.Retrieve(context.Background(), "query")
	if !apperrors.IsCode(err, CodeRecordNotFound) {
		t.Fatalf("expected %s, got %v", CodeRecordNotFound, err)
	}
}

func TestRetrieveCachesRecords(t *testing.T) {
	index := &stubIndex{neighbors: []Neighbor{{ID: 42, Distance: 0.1}}}
	mappings := newStubMappings(map[VectorID]RowID{42: 1})
	records := newStubRecords(Record{ID: 1, Question: "What time do parks open?", Answer: "Parks typically open at 9am."})
	r, _ := newTestRetriever(t, testConfig(), index, mappings, records, nil)

	var first []Candidate
	for i := 0; i < 3; i++ {
		got, err := r.Retrieve(context.Background(), "what time do parks open?")
		if err != nil {
			t.Fatalf("retrieve %d: %v", i, err)
		}
		if i == 0 {
			first = got
			continue
		}
		if got[0].Question != first[0].Question || got[0].Answer != first[0].Answer {
			t.Fatalf("cached record differs: %+v vs %+v", got[0], first[0])
		}
	}
	if records.calls[1] != 1 {
		t.Fatalf("expected a single store query, got %d", records.calls[1])
	}
}

func TestRetrieveCacheEvictsLeastRecentlyUsed(t *testing.T) {
	index := &stubIndex{}
	mappings := newStubMappings(map[VectorID]RowID{1: 1, 2: 2, 3: 3})
	records := newStubRecords(
		Record{ID: 1, Question: "q1", Answer: "a1"},
		Record{ID: 2, Question: "q2", Answer: "a2"},
		Record{ID: 3, Question: "q3", Answer: "a3"},
	)
	cfg := testConfig()
	cfg.CacheSize = 2
	r, _ := newTestRetriever(t, cfg, index, mappings, records, nil)

	for _, id := range []VectorID{1, 2, 3, 1} {
		index.neighbors = []Neighbor{{ID: id, Distance: 0.1}}
		if _, err := r.Retrieve(context.Background(), "query"); err != nil {
			t.Fatalf("retrieve %d: %v", id, err)
		}
	}
	if records.calls[1] != 2 {
		t.Fatalf("expected row 1 to be evicted and reloaded, got %d loads", records.calls[1])
	}
	if records.total() != 4 {
		t.Fatalf("expected 4 store queries, got %d", records.total())
	}
}

func TestRetrieveUsesSharedCache(t *testing.T) {
	index := &stubIndex{neighbors: []Neighbor{{ID: 1, Distance: 0.1}, {ID: 2, Distance: 0.2}}}
	mappings := newStubMappings(map[VectorID]RowID{1: 1, 2: 2})
	records := newStubRecords(Record{ID: 2, Question: "q2", Answer: "a2"})
	shared := &stubCache{records: map[RowID]Record{1: {ID: 1, Question: "q1", Answer: "a1"}}}
	cfg := testConfig()
	cfg.SharedCacheTTL = 42
	r, _ := newTestRetriever(t, cfg, index, mappings, records, shared)

	got, err := r.Retrieve(context.Background(), "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected two candidates, got %+v", got)
	}
	if records.calls[1] != 0 {
		t.Fatalf("row 1 should come from the shared cache")
	}
	if shared.saved != 1 || shared.ttl != 42 {
		t.Fatalf("expected row 2 written back with ttl, saved=%d ttl=%v", shared.saved, shared.ttl)
	}
}

func TestRetrieveWrapsDependencyFailures(t *testing.T) {
	cases := []struct {
		name  string
		setup func(e *stubEmbedder, i *stubIndex, m *stubMappings, r *stubRecords)
		code  string
	}{
		{name: "embedder", setup: func(e *stubEmbedder, _ *stubIndex, _ *stubMappings, _ *stubRecords) { e.err = errors.New("boom") }, code: CodeEmbedding},
		{name: "index", setup: func(_ *stubEmbedder, i *stubIndex, _ *stubMappings, _ *stubRecords) { i.err = errors.New("boom") }, code: CodeIndex},
		{name: "mapping", setup: func(_ *stubEmbedder, _ *stubIndex, m *stubMappings, _ *stubRecords) { m.err = errors.New("boom") }, code: CodeStorage},
		{name: "records", setup: func(_ *stubEmbedder, _ *stubIndex, _ *stubMappings, r *stubRecords) { r.err = errors.New("boom") }, code: CodeStorage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			index := &stubIndex{neighbors: []Neighbor{{ID: 1, Distance: 0.1}}}
			mappings := newStubMappings(map[VectorID]RowID{1: 1})
			records := newStubRecords(Record{ID: 1, Question: "q", Answer: "a"})
			r, embedder := newTestRetriever(t, testConfig(), index, mappings, records, nil)
			tc.setup(embedder, index, mappings, records)

			_, err := r.Retrieve(context.Background(), "query")
			if !apperrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestNewRetrieverRejectsMissingDependencies(t *testing.T) {
	_, err := NewRetriever(testConfig(), nil, &stubIndex{}, newStubMappings(nil), newStubRecords(), nil, discardLogger())
	if err == nil {
		t.Fatalf("expected error for nil embedder")
	}
	cfg := testConfig()
	cfg.CacheSize = 0
	_, err = NewRetriever(cfg, &stubEmbedder{}, &stubIndex{}, newStubMappings(nil), newStubRecords(), nil, discardLogger())
	if err == nil {
		t.Fatalf("expected error for zero cache size")
	}
}

func TestRetrieveStopsAtNaNDistance(t *testing.T) {
	nan := float32(math.NaN())
	cases := []struct {
		name      string
		neighbors []Neighbor
		want      int
	}{
		{name: "all nan", neighbors: []Neighbor{{ID: 1, Distance: nan}, {ID: 2, Distance: nan}}, want: 0},
		{name: "nan after match", neighbors: []Neighbor{{ID: 1, Distance: 0.4}, {ID: 2, Distance: nan}}, want: 1},
		{name: "nan before match", neighbors: []Neighbor{{ID: 2, Distance: nan}, {ID: 1, Distance: 0.4}}, want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			index := &stubIndex{neighbors: tc.neighbors}
			mappings := newStubMappings(map[VectorID]RowID{1: 10, 2: 20})
			records := newStubRecords(
				Record{ID: 10, Question: "q1", Answer: "a1"},
				Record{ID: 20, Question: "q2", Answer: "a2"},
			)
			r, _ := newTestRetriever(t, testConfig(), index, mappings, records, nil)

			got, err := r.Retrieve(context.Background(), "what time do parks open?")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("expected %d candidates, got %+v", tc.want, got)
			}
			for _, c := range got {
				if !(float64(c.Distance) <= testConfig().SimilarityThreshold) {
					t.Fatalf("candidate outside threshold admitted: %+v", c)
				}
			}
			if mappings.calls[2] != 0 {
				t.Fatalf("nan neighbor was resolved: %v", mappings.calls)
			}
		})
	}
}

func TestRetrieveConcurrentCallsShareCache(t *testing.T) {
	index := &stubIndex{neighbors: []Neighbor{
		{ID: 1, Distance: 0.1},
		{ID: 2, Distance: 0.2},
		{ID: 3, Distance: 0.3},
	}}
	mappings := newStubMappings(map[VectorID]RowID{1: 10, 2: 20, 3: 30})
	records := newStubRecords(
		Record{ID: 10, Question: "q1", Answer: "a1"},
		Record{ID: 20, Question: "q2", Answer: "a2"},
		Record{ID: 30, Question: "q3", Answer: "a3"},
	)
	r, _ := newTestRetriever(t, testConfig(), index, mappings, records, nil)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Retrieve(context.Background(), "what time do parks open?")
			if err != nil {
				errs <- err
				return
			}
			if len(got) != 3 || got[0].RowID != 10 || got[1].RowID != 20 || got[2].RowID != 30 {
				errs <- errors.New("unexpected candidates")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent retrieve: %v", err)
	}

	// Concurrent misses may each hit the store; once warm, nothing does.
	before := records.total()
	if before < 3 || before > 3*workers {
		t.Fatalf("unexpected store lookups: %d", before)
	}
	if _, err := r.Retrieve(context.Background(), "what time do parks open?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records.total() != before {
		t.Fatalf("warm cache still hit the store: %d -> %d", before, records.total())
	}
}
