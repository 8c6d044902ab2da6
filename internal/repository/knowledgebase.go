package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scaleworks/docquery/internal/domain"
	"github.com/scaleworks/docquery/internal/pagination"
)

// KnowledgeBaseRepository persists knowledge-base records.
type KnowledgeBaseRepository struct {
	pool *pgxpool.Pool
}

func NewKnowledgeBaseRepository(pool *pgxpool.Pool) *KnowledgeBaseRepository {
	return &KnowledgeBaseRepository{pool: pool}
}

func (r *KnowledgeBaseRepository) Create(ctx context.Context, kb *domain.KnowledgeBase) error {
	if err := kb.Validate(); err != nil {
		return err
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO knowledge_bases (id, owner_id, file_name, vector_ids, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		kb.ID, kb.OwnerID, kb.FileName, kb.VectorIDs, kb.CreatedAt,
	)
	return err
}

func (r *KnowledgeBaseRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error) {
	var kb domain.KnowledgeBase
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, file_name, vector_ids, created_at
		 FROM knowledge_bases WHERE id = $1`,
		id,
	).Scan(&kb.ID, &kb.OwnerID, &kb.FileName, &kb.VectorIDs, &kb.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeBaseNotFound
		}
		return nil, err
	}
	return &kb, nil
}

// ListByOwner returns up to limit records, newest first, resuming after
// cursor when non-nil.
func (r *KnowledgeBaseRepository) ListByOwner(ctx context.Context, ownerID string, limit int, cursor *pagination.Cursor) ([]*domain.KnowledgeBase, error) {
	query := `SELECT id, owner_id, file_name, vector_ids, created_at
	          FROM knowledge_bases WHERE owner_id = $1`
	args := []interface{}{ownerID}

	if cursor != nil {
		query += ` AND (created_at, id) < ($2, $3)`
		args = append(args, cursor.Timestamp, cursor.LastID)
	}

	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.KnowledgeBase
	for rows.Next() {
		var kb domain.KnowledgeBase
		if err := rows.Scan(&kb.ID, &kb.OwnerID, &kb.FileName, &kb.VectorIDs, &kb.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &kb)
	}

	return items, rows.Err()
}

func (r *KnowledgeBaseRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM knowledge_bases WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrKnowledgeBaseNotFound
	}
	return nil
}
