package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scaleworks/docquery/internal/domain"
)

// OwnerRepository persists owners and their knowledge-base index.
type OwnerRepository struct {
	pool *pgxpool.Pool
}

func NewOwnerRepository(pool *pgxpool.Pool) *OwnerRepository {
	return &OwnerRepository{pool: pool}
}

func (r *OwnerRepository) Create(ctx context.Context, owner *domain.Owner) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO owners (id, name, kb_ids, created_at) VALUES ($1, $2, $3, $4)`,
		owner.ID, owner.Name, owner.KnowledgeBaseIDs, owner.CreatedAt,
	)
	return err
}

func (r *OwnerRepository) GetByID(ctx context.Context, id string) (*domain.Owner, error) {
	return r.get(ctx, `SELECT id, name, kb_ids, created_at FROM owners WHERE id = $1`, id)
}

func (r *OwnerRepository) GetByName(ctx context.Context, name string) (*domain.Owner, error) {
	return r.get(ctx, `SELECT id, name, kb_ids, created_at FROM owners WHERE name = $1`, name)
}

func (r *OwnerRepository) get(ctx context.Context, query, arg string) (*domain.Owner, error) {
	var owner domain.Owner
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&owner.ID, &owner.Name, &owner.KnowledgeBaseIDs, &owner.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOwnerNotFound
		}
		return nil, err
	}
	return &owner, nil
}

func (r *OwnerRepository) List(ctx context.Context) ([]*domain.Owner, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, kb_ids, created_at FROM owners ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []*domain.Owner
	for rows.Next() {
		var owner domain.Owner
		if err := rows.Scan(&owner.ID, &owner.Name, &owner.KnowledgeBaseIDs, &owner.CreatedAt); err != nil {
			return nil, err
		}
		owners = append(owners, &owner)
	}

	return owners, rows.Err()
}

// AppendKnowledgeBaseID adds kbID to the owner's index. The append happens in
// one statement at the storage layer, so concurrent ingests to the same owner
// cannot lose each other's updates; appending an id already present is a
// no-op.
func (r *OwnerRepository) AppendKnowledgeBaseID(ctx context.Context, ownerID, kbID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE owners
		 SET kb_ids = array_append(kb_ids, $2)
		 WHERE id = $1 AND NOT ($2 = ANY(kb_ids))`,
		ownerID, kbID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// either the owner is missing or the id is already indexed
		if _, err := r.GetByID(ctx, ownerID); err != nil {
			return err
		}
	}
	return nil
}

// RemoveKnowledgeBaseID drops kbID from the owner's index, atomically.
func (r *OwnerRepository) RemoveKnowledgeBaseID(ctx context.Context, ownerID, kbID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE owners SET kb_ids = array_remove(kb_ids, $2) WHERE id = $1`,
		ownerID, kbID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOwnerNotFound
	}
	return nil
}
