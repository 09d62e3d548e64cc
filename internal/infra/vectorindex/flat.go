package vectorindex

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

// Entry is one vector stored in the index.
type Entry struct {
	ID     faq.VectorID
	Vector []float32
}

// FlatIndex is an exhaustive squared-L2 index. It is immutable after
// construction and safe for concurrent searches.
type FlatIndex struct {
	dim     int
	ids     []faq.VectorID
	vectors []float32
}

// NewFlatIndex copies entries into a contiguous buffer.
func NewFlatIndex(dim int, entries []Entry) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dim: %d", dim)
	}
	idx := &FlatIndex{
		dim:     dim,
		ids:     make([]faq.VectorID, 0, len(entries)),
		vectors: make([]float32, 0, len(entries)*dim),
	}
	for _, e := range entries {
		if len(e.Vector) != dim {
			return nil, fmt.Errorf("vector %d has dim %d, want %d", e.ID, len(e.Vector), dim)
		}
		idx.ids = append(idx.ids, e.ID)
		idx.vectors = append(idx.vectors, e.Vector...)
	}
	return idx, nil
}

// Dim returns the vector dimension.
func (f *FlatIndex) Dim() int { return f.dim }

// Len returns the number of stored vectors.
func (f *FlatIndex) Len() int { return len(f.ids) }

// Search returns the k nearest vectors, nearest first. Ties keep insertion
// order.
func (f *FlatIndex) Search(ctx context.Context, vector []float32, k int) ([]faq.Neighbor, error) {
	if len(vector) != f.dim {
		return nil, fmt.Errorf("query dim %d does not match index dim %d", len(vector), f.dim)
	}
	if k <= 0 || len(f.ids) == 0 {
		return []faq.Neighbor{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits := make([]faq.Neighbor, len(f.ids))
	for i, id := range f.ids {
		hits[i] = faq.Neighbor{ID: id, Distance: squaredL2(vector, f.vectors[i*f.dim:(i+1)*f.dim])}
	}
	slices.SortStableFunc(hits, func(a, b faq.Neighbor) int { return cmp.Compare(a.Distance, b.Distance) })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

var _ faq.VectorIndex = (*FlatIndex)(nil)
