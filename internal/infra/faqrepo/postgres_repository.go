package faqrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

// PostgresRepository implements faq.RecordStore using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get fetches one FAQ row by primary key.
func (r *PostgresRepository) Get(ctx context.Context, id faq.RowID) (faq.Record, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, category, question, answer
		FROM faq
		WHERE id = $1
	`, int64(id))
	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return faq.Record{}, false, nil
	}
	if err != nil {
		return faq.Record{}, false, err
	}
	return record, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (faq.Record, error) {
	var (
		id       int64
		category sql.NullString
		record   faq.Record
	)
	if err := row.Scan(&id, &category, &record.Question, &record.Answer); err != nil {
		return faq.Record{}, err
	}
	record.ID = faq.RowID(id)
	record.Category = category.String
	return record, nil
}

var _ faq.RecordStore = (*PostgresRepository)(nil)
