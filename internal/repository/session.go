package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scaleworks/docquery/internal/domain"
)

// SessionRepository persists ephemeral session records so the reaper can find
// sessions whose vector cleanup never ran.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, owner_id, vector_ids, created_at, purged_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.OwnerID, session.VectorIDs, session.CreatedAt, session.PurgedAt,
	)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var session domain.Session
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, vector_ids, created_at, purged_at
		 FROM sessions WHERE id = $1`,
		id,
	).Scan(&session.ID, &session.OwnerID, &session.VectorIDs, &session.CreatedAt, &session.PurgedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) MarkPurged(ctx context.Context, id string, purgedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET purged_at = $2 WHERE id = $1 AND purged_at IS NULL`,
		id, purgedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// ListUnpurgedBefore returns sessions created before the cutoff whose vectors
// were never purged, oldest first.
func (r *SessionRepository) ListUnpurgedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, vector_ids, created_at, purged_at
		 FROM sessions
		 WHERE purged_at IS NULL AND created_at < $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		var session domain.Session
		if err := rows.Scan(&session.ID, &session.OwnerID, &session.VectorIDs, &session.CreatedAt, &session.PurgedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, &session)
	}

	return sessions, rows.Err()
}
