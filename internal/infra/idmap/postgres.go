package idmap

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

// PostgresStore reads the faq_vector_mapping table written by the indexer.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// RowIDFor implements faq.MappingStore.
func (s *PostgresStore) RowIDFor(ctx context.Context, id faq.VectorID) (faq.RowID, bool, error) {
	var row int64
	err := s.pool.QueryRow(ctx, `
		SELECT row_id
		FROM faq_vector_mapping
		WHERE vector_id = $1
	`, int64(id)).Scan(&row)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return faq.RowID(row), true, nil
}

var _ faq.MappingStore = (*PostgresStore)(nil)
