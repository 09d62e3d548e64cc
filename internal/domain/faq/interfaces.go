package faq

import "context"

// Embedder turns texts into dense vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex returns up to k neighbours of vector, nearest first.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, k int) ([]Neighbor, error)
}

// MappingStore translates index identifiers to FAQ rows.
type MappingStore interface {
	RowIDFor(ctx context.Context, id VectorID) (RowID, bool, error)
}

// RecordStore reads FAQ rows by primary key.
type RecordStore interface {
	Get(ctx context.Context, id RowID) (Record, bool, error)
}

// AnswerGenerator calls the external chat model.
type AnswerGenerator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// TokenCounter estimates how many model tokens a text consumes.
type TokenCounter interface {
	CountTokens(text string) int
}
