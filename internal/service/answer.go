package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/scaleworks/docquery/internal/domain"
	"github.com/scaleworks/docquery/internal/telemetry"
)

// NoRelevantContentMessage is streamed when retrieval retries are exhausted
// with no matches. Informational, not an error.
const NoRelevantContentMessage = "No relevant content found."

// SessionIngestResult is what an ad-hoc session ingest hands back to the
// caller; the vector ids are replayed on the follow-up query so the answer
// path knows exactly what to purge.
type SessionIngestResult struct {
	SessionID     string
	VectorIDs     []string
	Failures      []DocumentFailure
	SkippedChunks int
}

// AnswerService runs the question-answer exchange for both lifecycle
// variants: the persistent per-owner knowledge base and the ephemeral
// per-session store.
type AnswerService struct {
	coordinator *RetrievalCoordinator
	synthesizer *Synthesizer
	lifecycle   *LifecycleManager
}

// NewAnswerService creates an AnswerService instance.
func NewAnswerService(coordinator *RetrievalCoordinator, synthesizer *Synthesizer, lifecycle *LifecycleManager) *AnswerService {
	return &AnswerService{
		coordinator: coordinator,
		synthesizer: synthesizer,
		lifecycle:   lifecycle,
	}
}

// AnswerFromKnowledgeBase retrieves context from the owner's persistent scope
// and streams a grounded answer. Persistent vectors are never cleaned up by
// the answer path.
func (s *AnswerService) AnswerFromKnowledgeBase(ctx context.Context, ownerID, question string) (<-chan Event, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrMissingQuery
	}

	ctx, span := telemetry.StartSpan(ctx, "answer.knowledge_base", telemetry.SpanAttributes{OwnerID: ownerID})
	defer span.End()

	chunks, err := s.coordinator.Retrieve(ctx, domain.OwnerScope(ownerID), question)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if len(chunks) == 0 {
		return informationalStream(NoRelevantContentMessage), nil
	}

	return s.synthesizer.Synthesize(ctx, AssembleContext(chunks), question, nil), nil
}

// AttachSessionDocuments ingests ad-hoc documents into a fresh ephemeral
// session scope and records the produced vector ids for later purging. The
// returned session id and vector ids are passed back on the follow-up query.
func (s *AnswerService) AttachSessionDocuments(ctx context.Context, ownerID string, docs []Document) (*SessionIngestResult, error) {
	if len(docs) == 0 {
		return nil, domain.ErrMissingDocuments
	}

	sessionID := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, "answer.attach_session_documents", telemetry.SpanAttributes{
		OwnerID:   ownerID,
		SessionID: sessionID,
	})
	defer span.End()

	result := &SessionIngestResult{SessionID: sessionID}
	scope := domain.SessionScope(sessionID)

	for i, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			result.Failures = append(result.Failures, DocumentFailure{
				FileName: doc.FileName,
				Reason:   "document has no extractable text",
			})
			continue
		}

		label := sessionID
		if len(docs) > 1 {
			label = sessionID + "-" + strconv.Itoa(i)
		}
		ingest, err := s.coordinator.Ingest(ctx, scope, label, doc.Text)
		if err != nil {
			result.Failures = append(result.Failures, DocumentFailure{FileName: doc.FileName, Reason: err.Error()})
			continue
		}
		result.SkippedChunks += ingest.FailedChunks
		result.VectorIDs = append(result.VectorIDs, ingest.VectorIDs...)
	}

	if len(result.VectorIDs) == 0 {
		return result, domain.NewDomainError(domain.ErrCodeInternalError, "no document content could be indexed")
	}

	if err := s.lifecycle.TrackSession(ctx, ownerID, sessionID, result.VectorIDs); err != nil {
		span.SetError(err)
		return nil, err
	}

	return result, nil
}

// AnswerFromSession retrieves context from the ephemeral session scope,
// streams a grounded answer, and purges the session's vectors exactly once
// after the stream reaches a terminal state.
func (s *AnswerService) AnswerFromSession(ctx context.Context, sessionID, question string, vectorIDs []string) (<-chan Event, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, domain.ErrMissingSessionID
	}
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrMissingQuery
	}

	ctx, span := telemetry.StartSpan(ctx, "answer.session", telemetry.SpanAttributes{SessionID: sessionID})
	defer span.End()

	cleanup := func(cctx context.Context) {
		s.lifecycle.CleanupSession(cctx, sessionID, vectorIDs)
	}

	chunks, err := s.coordinator.Retrieve(ctx, domain.SessionScope(sessionID), question)
	if err != nil {
		span.SetError(err)
		// the exchange is over; purge rather than leak until the reaper
		cleanup(context.WithoutCancel(ctx))
		return nil, err
	}

	if len(chunks) == 0 {
		cleanup(context.WithoutCancel(ctx))
		return informationalStream(NoRelevantContentMessage), nil
	}

	return s.synthesizer.Synthesize(ctx, AssembleContext(chunks), question, cleanup), nil
}

// informationalStream yields one fragment and a terminal end.
func informationalStream(message string) <-chan Event {
	events := make(chan Event, 2)
	events <- Event{Kind: EventFragment, Text: message}
	events <- Event{Kind: EventEnd}
	close(events)
	return events
}
