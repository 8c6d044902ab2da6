package service

import (
	"context"
	"log"
	"time"

	"github.com/scaleworks/docquery/internal/domain"
	"github.com/scaleworks/docquery/internal/telemetry"
	"github.com/scaleworks/docquery/internal/vectorstore"
)

// LifecycleSessionRepository persists ephemeral session records.
type LifecycleSessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	MarkPurged(ctx context.Context, id string, purgedAt time.Time) error
}

// LifecycleKnowledgeBaseRepository loads and deletes knowledge-base records.
type LifecycleKnowledgeBaseRepository interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error)
	Delete(ctx context.Context, id string) error
}

// LifecycleOwnerRepository maintains the owner's knowledge-base index.
type LifecycleOwnerRepository interface {
	RemoveKnowledgeBaseID(ctx context.Context, ownerID, kbID string) error
}

// LifecycleManager tracks which vectors belong to which ephemeral session or
// persistent knowledge-base record, and performs deletion with the required
// ordering guarantees.
type LifecycleManager struct {
	store       vectorstore.Store
	sessionRepo LifecycleSessionRepository
	kbRepo      LifecycleKnowledgeBaseRepository
	ownerRepo   LifecycleOwnerRepository
}

// NewLifecycleManager creates a LifecycleManager instance.
func NewLifecycleManager(
	store vectorstore.Store,
	sessionRepo LifecycleSessionRepository,
	kbRepo LifecycleKnowledgeBaseRepository,
	ownerRepo LifecycleOwnerRepository,
) *LifecycleManager {
	return &LifecycleManager{
		store:       store,
		sessionRepo: sessionRepo,
		kbRepo:      kbRepo,
		ownerRepo:   ownerRepo,
	}
}

// TrackSession records the vectors an ephemeral ingest produced so they can
// be purged after the answer stream terminates, or reaped later if the purge
// never runs.
func (m *LifecycleManager) TrackSession(ctx context.Context, ownerID, sessionID string, vectorIDs []string) error {
	session := &domain.Session{
		ID:        sessionID,
		OwnerID:   ownerID,
		VectorIDs: vectorIDs,
		CreatedAt: time.Now().UTC(),
	}
	return m.sessionRepo.Create(ctx, session)
}

// CleanupSession deletes a session's vectors and marks the session purged.
// Failures are logged and reported to telemetry but never alter a response
// already streamed to the caller; the reaper retries unpurged sessions.
func (m *LifecycleManager) CleanupSession(ctx context.Context, sessionID string, vectorIDs []string) {
	if len(vectorIDs) == 0 {
		log.Printf("cleanup: no vector ids for session %s", sessionID)
		return
	}

	if err := m.store.DeleteMany(ctx, domain.SessionScope(sessionID), vectorIDs); err != nil {
		log.Printf("cleanup: failed to delete %d vectors for session %s: %v", len(vectorIDs), sessionID, err)
		telemetry.CaptureError(ctx, err)
		return
	}

	if err := m.sessionRepo.MarkPurged(ctx, sessionID, time.Now().UTC()); err != nil {
		log.Printf("cleanup: failed to mark session %s purged: %v", sessionID, err)
		telemetry.CaptureError(ctx, err)
		return
	}

	log.Printf("cleanup: deleted %d vectors for session %s", len(vectorIDs), sessionID)
}

// DeleteKnowledgeBase removes a knowledge base, strictly in order: vectors
// first, then the owner's index reference, then the record. If vector
// deletion fails the operation aborts with everything intact. After step one
// the policy is fail-forward: index or record failures are reported
// distinctly but step one is never rolled back, since vectors are worthless
// without a reachable record.
func (m *LifecycleManager) DeleteKnowledgeBase(ctx context.Context, kbID, ownerID string) error {
	ctx, span := telemetry.StartSpan(ctx, "lifecycle.delete_knowledge_base", telemetry.SpanAttributes{
		OwnerID:         ownerID,
		KnowledgeBaseID: kbID,
	})
	defer span.End()

	kb, err := m.kbRepo.GetByID(ctx, kbID)
	if err != nil {
		return err
	}
	if kb.OwnerID != ownerID {
		return domain.ErrNotOwner
	}

	if err := m.store.DeleteMany(ctx, domain.OwnerScope(ownerID), kb.VectorIDs); err != nil {
		span.SetError(err)
		return domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "failed to delete knowledge base vectors", err)
	}

	if err := m.ownerRepo.RemoveKnowledgeBaseID(ctx, ownerID, kbID); err != nil {
		span.SetError(err)
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "vectors deleted but index update failed", err)
	}

	if err := m.kbRepo.Delete(ctx, kbID); err != nil {
		span.SetError(err)
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "vectors deleted but record deletion failed", err)
	}

	return nil
}
