package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scaleworks/docquery/internal/domain"
	"github.com/scaleworks/docquery/internal/pagination"
	"github.com/scaleworks/docquery/internal/telemetry"
)

// KnowledgeBaseRepository persists knowledge-base records.
type KnowledgeBaseRepository interface {
	Create(ctx context.Context, kb *domain.KnowledgeBase) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error)
	ListByOwner(ctx context.Context, ownerID string, limit int, cursor *pagination.Cursor) ([]*domain.KnowledgeBase, error)
}

// OwnerIndexRepository maintains the owner -> knowledge-base index. Appends
// and removals are atomic at the storage layer so concurrent ingests cannot
// lose updates.
type OwnerIndexRepository interface {
	AppendKnowledgeBaseID(ctx context.Context, ownerID, kbID string) error
}

// DocumentArchiver stores the raw ingested text for audit. Optional; a nil
// archiver disables archival.
type DocumentArchiver interface {
	ArchiveDocument(ctx context.Context, ownerID, kbID, fileName string, text string) error
}

// Document is one already-extracted plain-text file submitted for ingestion.
type Document struct {
	FileName string
	Text     string
}

// DocumentFailure reports one document that could not be ingested. Non-fatal:
// other documents in the same request still succeed.
type DocumentFailure struct {
	FileName string
	Reason   string
}

// IngestDocumentsResult is the outcome of one ingest request.
type IngestDocumentsResult struct {
	KnowledgeBases []*domain.KnowledgeBase
	Failures       []DocumentFailure
	SkippedChunks  int
}

// KnowledgeBaseService handles ingestion into and listing of per-owner
// persistent knowledge bases.
type KnowledgeBaseService struct {
	coordinator *RetrievalCoordinator
	repo        KnowledgeBaseRepository
	ownerRepo   OwnerIndexRepository
	archiver    DocumentArchiver
}

// NewKnowledgeBaseService creates a KnowledgeBaseService instance.
func NewKnowledgeBaseService(
	coordinator *RetrievalCoordinator,
	repo KnowledgeBaseRepository,
	ownerRepo OwnerIndexRepository,
	archiver DocumentArchiver,
) *KnowledgeBaseService {
	return &KnowledgeBaseService{
		coordinator: coordinator,
		repo:        repo,
		ownerRepo:   ownerRepo,
		archiver:    archiver,
	}
}

// IngestDocuments ingests each document independently into the owner's
// persistent scope. A document that fails is reported and skipped; the rest
// of the batch continues. For each stored document a KnowledgeBase record is
// created and its id appended to the owner's index. Returns the owner's
// updated knowledge-base list.
func (s *KnowledgeBaseService) IngestDocuments(ctx context.Context, ownerID string, docs []Document) (*IngestDocumentsResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "knowledgebase.ingest_documents", telemetry.SpanAttributes{OwnerID: ownerID})
	defer span.End()

	if len(docs) == 0 {
		return nil, domain.ErrMissingDocuments
	}

	result := &IngestDocumentsResult{}
	scope := domain.OwnerScope(ownerID)

	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			result.Failures = append(result.Failures, DocumentFailure{
				FileName: doc.FileName,
				Reason:   "document has no extractable text",
			})
			continue
		}

		kbID := uuid.NewString()
		ingest, err := s.coordinator.Ingest(ctx, scope, kbID, doc.Text)
		if err != nil {
			result.Failures = append(result.Failures, DocumentFailure{FileName: doc.FileName, Reason: err.Error()})
			continue
		}
		result.SkippedChunks += ingest.FailedChunks

		if len(ingest.VectorIDs) == 0 {
			result.Failures = append(result.Failures, DocumentFailure{
				FileName: doc.FileName,
				Reason:   "no chunks could be embedded",
			})
			continue
		}

		kb := &domain.KnowledgeBase{
			ID:        kbID,
			OwnerID:   ownerID,
			FileName:  doc.FileName,
			VectorIDs: ingest.VectorIDs,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.repo.Create(ctx, kb); err != nil {
			span.SetError(err)
			result.Failures = append(result.Failures, DocumentFailure{FileName: doc.FileName, Reason: err.Error()})
			continue
		}

		if err := s.ownerRepo.AppendKnowledgeBaseID(ctx, ownerID, kbID); err != nil {
			span.SetError(err)
			result.Failures = append(result.Failures, DocumentFailure{FileName: doc.FileName, Reason: err.Error()})
			continue
		}

		if s.archiver != nil {
			if err := s.archiver.ArchiveDocument(ctx, ownerID, kbID, doc.FileName, doc.Text); err != nil {
				// archival is best-effort; the knowledge base is live
				log.Printf("ingest: failed to archive %s for owner %s: %v", doc.FileName, ownerID, err)
			}
		}

		result.KnowledgeBases = append(result.KnowledgeBases, kb)
	}

	return result, nil
}

// DefaultListLimit caps one page of knowledge-base listings
const DefaultListLimit = 50

// List returns one page of the owner's knowledge bases, newest first.
func (s *KnowledgeBaseService) List(ctx context.Context, ownerID string, limit int, cursor string) (*pagination.PageResult[*domain.KnowledgeBase], error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}

	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	items, err := s.repo.ListByOwner(ctx, ownerID, limit+1, decoded)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	next := ""
	if hasMore {
		next = pagination.NextCursor(items, limit,
			func(kb *domain.KnowledgeBase) string { return kb.ID },
			func(kb *domain.KnowledgeBase) time.Time { return kb.CreatedAt },
		)
	}

	return &pagination.PageResult[*domain.KnowledgeBase]{
		Items:   items,
		Cursor:  next,
		HasMore: hasMore,
	}, nil
}
