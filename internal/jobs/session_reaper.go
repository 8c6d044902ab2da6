package jobs

import (
	"context"
	"log"
	"time"

	"github.com/scaleworks/docquery/internal/domain"
	"github.com/scaleworks/docquery/internal/vectorstore"
)

const reapBatchSize = 50

// ReaperSessionRepository lists and updates sessions pending cleanup.
type ReaperSessionRepository interface {
	ListUnpurgedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Session, error)
	MarkPurged(ctx context.Context, id string, purgedAt time.Time) error
}

// SessionReaper deletes vectors left behind by ephemeral sessions whose
// post-stream cleanup failed or never ran (client disconnects, process
// crashes). Runs under the polling Worker.
type SessionReaper struct {
	sessions ReaperSessionRepository
	store    vectorstore.Store
	ttl      time.Duration
}

// NewSessionReaper creates a SessionReaper. Sessions older than ttl with
// unpurged vectors are eligible.
func NewSessionReaper(sessions ReaperSessionRepository, store vectorstore.Store, ttl time.Duration) *SessionReaper {
	return &SessionReaper{sessions: sessions, store: store, ttl: ttl}
}

// ProcessJobs reaps one batch of expired sessions.
func (r *SessionReaper) ProcessJobs(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-r.ttl)

	expired, err := r.sessions.ListUnpurgedBefore(ctx, cutoff, reapBatchSize)
	if err != nil {
		return err
	}

	for _, session := range expired {
		if err := r.store.DeleteMany(ctx, session.Scope(), session.VectorIDs); err != nil {
			log.Printf("reaper: failed to delete vectors for session %s: %v", session.ID, err)
			continue
		}
		if err := r.sessions.MarkPurged(ctx, session.ID, time.Now().UTC()); err != nil {
			log.Printf("reaper: failed to mark session %s purged: %v", session.ID, err)
			continue
		}
		log.Printf("reaper: purged %d vectors from expired session %s", len(session.VectorIDs), session.ID)
	}

	return nil
}
