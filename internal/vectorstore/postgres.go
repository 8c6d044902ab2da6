package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/scaleworks/docquery/internal/domain"
)

// PostgresStore implements Store on a pgvector-enabled Postgres table. Scope
// isolation is a filter column; every statement carries the scope predicate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Upsert stores all records in a single batch within one transaction.
func (s *PostgresStore) Upsert(ctx context.Context, scope string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(
			`INSERT INTO vectors (id, scope, content, source_label, embedding)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE
			 SET scope = EXCLUDED.scope,
			     content = EXCLUDED.content,
			     source_label = EXCLUDED.source_label,
			     embedding = EXCLUDED.embedding`,
			r.ID, scope, r.Content, r.SourceLabel, pgvector.NewVector(r.Embedding),
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "vector upsert failed", err)
		}
	}

	return nil
}

// Query runs a cosine-distance search within scope. Score is 1/(1+distance)
// so higher is better; ordering comes from the index.
func (s *PostgresStore) Query(ctx context.Context, scope string, embedding []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, content, source_label,
		        1.0 / (1.0 + (embedding <=> $1)) AS score
		 FROM vectors
		 WHERE scope = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		pgvector.NewVector(embedding), scope, topK,
	)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "vector query failed", err)
	}
	defer rows.Close()

	matches := make([]Match, 0, topK)
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Content, &m.SourceLabel, &m.Score); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// DeleteMany removes ids from scope. Ids that are absent, or that exist under
// a different scope, are silently skipped.
func (s *PostgresStore) DeleteMany(ctx context.Context, scope string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := s.pool.Exec(ctx,
		`DELETE FROM vectors WHERE scope = $1 AND id = ANY($2)`,
		scope, ids,
	)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "vector delete failed", err)
	}
	return nil
}

// DeleteScope removes every vector under scope. Used by the session reaper.
func (s *PostgresStore) DeleteScope(ctx context.Context, scope string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM vectors WHERE scope = $1`, scope)
	if err != nil {
		return 0, fmt.Errorf("failed to delete scope %s: %w", scope, err)
	}
	return tag.RowsAffected(), nil
}
