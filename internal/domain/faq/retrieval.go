package faq

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	apperrors "github.com/yanqian/faq-rag/pkg/errors"
)

// Retriever finds FAQ records close to a normalized query.
type Retriever struct {
	cfg      Config
	embedder Embedder
	index    VectorIndex
	mappings MappingStore
	records  RecordStore
	shared   RecordCache
	cache    *lru.Cache[RowID, Record]
	logger   *slog.Logger
}

// NewRetriever builds a Retriever with its own bounded record cache. shared
// may be nil.
func NewRetriever(cfg Config, embedder Embedder, index VectorIndex, mappings MappingStore, records RecordStore, shared RecordCache, logger *slog.Logger) (*Retriever, error) {
	if embedder == nil || index == nil || mappings == nil || records == nil {
		return nil, errors.New("faq retriever requires embedder, index, mapping store and record store")
	}
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("faq retriever: topK must be positive, got %d", cfg.TopK)
	}
	cache, err := lru.New[RowID, Record](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("faq retriever: create record cache: %w", err)
	}
	return &Retriever{
		cfg:      cfg,
		embedder: embedder,
		index:    index,
		mappings: mappings,
		records:  records,
		shared:   shared,
		cache:    cache,
		logger:   logger.With("component", "faq.retriever"),
	}, nil
}

// Retrieve returns candidates within the similarity threshold, nearest first.
// An empty result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Candidate, error) {
	start := time.Now()
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, apperrors.Wrap(CodeEmbedding, "failed to embed query", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, apperrors.Wrap(CodeEmbedding, "embedding response empty", nil)
	}
	r.logger.Debug("query embedded", "duration_ms", time.Since(start).Milliseconds())

	searchStart := time.Now()
	neighbors, err := r.index.Search(ctx, vectors[0], r.cfg.TopK)
	if err != nil {
		return nil, apperrors.Wrap(CodeIndex, "vector search failed", err)
	}
	neighbors = ascending(neighbors)
	r.logger.Debug("index searched", "neighbors", len(neighbors), "duration_ms", time.Since(searchStart).Milliseconds())

	lookupStart := time.Now()
	candidates := make([]Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		// Written as !(d <= t) so NaN distances also stop the scan.
		if !(float64(n.Distance) <= r.cfg.SimilarityThreshold) {
			break
		}
		rowID, ok, err := r.mappings.RowIDFor(ctx, n.ID)
		if err != nil {
			return nil, apperrors.Wrap(CodeStorage, "vector mapping lookup failed", err)
		}
		if !ok {
			r.logger.Error("vector id has no row mapping", "alert", "data_integrity", "vector_id", int64(n.ID))
			return nil, apperrors.Wrap(CodeMappingNotFound, fmt.Sprintf("no row mapped to vector %d", n.ID), nil)
		}
		record, err := r.lookup(ctx, rowID)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, Candidate{
			RowID:    record.ID,
			Category: record.Category,
			Question: record.Question,
			Answer:   record.Answer,
			Distance: n.Distance,
		})
	}
	r.logger.Debug("candidates resolved", "candidates", len(candidates), "duration_ms", time.Since(lookupStart).Milliseconds())
	return candidates, nil
}

func (r *Retriever) lookup(ctx context.Context, id RowID) (Record, error) {
	if record, ok := r.cache.Get(id); ok {
		return record, nil
	}
	if r.shared != nil {
		record, ok, err := r.shared.GetRecord(ctx, id)
		if err != nil {
			r.logger.Warn("shared record cache read failed", "row_id", int64(id), "error", err)
		} else if ok {
			r.cache.Add(id, record)
			return record, nil
		}
	}
	record, ok, err := r.records.Get(ctx, id)
	if err != nil {
		return Record{}, apperrors.Wrap(CodeStorage, "faq record lookup failed", err)
	}
	if !ok {
		r.logger.Error("faq row missing", "alert", "data_integrity", "row_id", int64(id))
		return Record{}, apperrors.Wrap(CodeRecordNotFound, fmt.Sprintf("faq row %d not found", id), nil)
	}
	r.cache.Add(id, record)
	if r.shared != nil {
		if err := r.shared.SaveRecord(ctx, record, r.cfg.SharedCacheTTL); err != nil {
			r.logger.Warn("shared record cache write failed", "row_id", int64(id), "error", err)
		}
	}
	return record, nil
}

// ascending returns neighbors ordered by distance with NaN distances last,
// copying only when the input is out of order.
func ascending(neighbors []Neighbor) []Neighbor {
	byDistance := func(a, b Neighbor) int {
		aNaN, bNaN := a.Distance != a.Distance, b.Distance != b.Distance
		switch {
		case aNaN && bNaN:
			return 0
		case aNaN:
			return 1
		case bNaN:
			return -1
		}
		return cmp.Compare(a.Distance, b.Distance)
	}
	if slices.IsSortedFunc(neighbors, byDistance) {
		return neighbors
	}
	sorted := slices.Clone(neighbors)
	slices.SortStableFunc(sorted, byDistance)
	return sorted
}
