package vectorindex

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

// PGVectorIndex searches vectors stored in a pgvector column. The table
// needs vector_id bigint and embedding vector(n) columns.
type PGVectorIndex struct {
	pool  *pgxpool.Pool
	query string
}

// NewPGVectorIndex constructs the index over table. The name must already be
// validated as a plain identifier.
func NewPGVectorIndex(pool *pgxpool.Pool, table string) *PGVectorIndex {
	return &PGVectorIndex{
		pool: pool,
		query: fmt.Sprintf(`
		SELECT vector_id, power(embedding <-> $1, 2) AS distance
		FROM %s
		ORDER BY embedding <-> $1
		LIMIT $2
	`, table),
	}
}

// Search returns the k nearest rows by squared L2 distance.
func (p *PGVectorIndex) Search(ctx context.Context, vector []float32, k int) ([]faq.Neighbor, error) {
	rows, err := p.pool.Query(ctx, p.query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]faq.Neighbor, 0, k)
	for rows.Next() {
		var (
			id       int64
			distance float64
		)
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, err
		}
		out = append(out, faq.Neighbor{ID: faq.VectorID(id), Distance: float32(distance)})
	}
	return out, rows.Err()
}

var _ faq.VectorIndex = (*PGVectorIndex)(nil)
