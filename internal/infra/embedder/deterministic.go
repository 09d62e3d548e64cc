package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

const defaultDeterministicDim = 384

// DeterministicEmbedder maps text to unit vectors by hashing its words into
// buckets, so squared L2 distances between outputs fall in [0, 4] and texts
// sharing words land close together. No network access.
type DeterministicEmbedder struct {
	dim int
}

// NewDeterministicEmbedder constructs the embedder; dim must match the index.
func NewDeterministicEmbedder(dim int) *DeterministicEmbedder {
	if dim <= 0 {
		dim = defaultDeterministicDim
	}
	return &DeterministicEmbedder{dim: dim}
}

// Embed implements faq.Embedder.
func (e *DeterministicEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.vector(text)
	}
	return vectors, nil
}

func (e *DeterministicEmbedder) vector(text string) []float32 {
	acc := make([]float64, e.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(words) == 0 {
		words = []string{text}
	}
	for _, w := range words {
		h := fnv.New64a()
		_, _ = h.Write([]byte(w))
		sum := h.Sum64()
		sign := 1.0
		if sum>>63 == 1 {
			sign = -1
		}
		acc[sum%uint64(e.dim)] += sign
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	out := make([]float32, e.dim)
	if norm == 0 {
		// Opposite-signed words cancelled out; fall back to a fixed axis.
		out[0] = 1
		return out
	}
	norm = math.Sqrt(norm)
	for j, v := range acc {
		out[j] = float32(v / norm)
	}
	return out
}

var _ faq.Embedder = (*DeterministicEmbedder)(nil)
