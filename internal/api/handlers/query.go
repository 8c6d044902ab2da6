package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/scaleworks/docquery/internal/api"
	"github.com/scaleworks/docquery/internal/api/middleware"
	"github.com/scaleworks/docquery/internal/domain"
	"github.com/scaleworks/docquery/internal/service"
)

// AnswerStreamer produces answer event streams for both lifecycle variants.
type AnswerStreamer interface {
	AnswerFromKnowledgeBase(ctx context.Context, ownerID, question string) (<-chan service.Event, error)
	AttachSessionDocuments(ctx context.Context, ownerID string, docs []service.Document) (*service.SessionIngestResult, error)
	AnswerFromSession(ctx context.Context, sessionID, question string, vectorIDs []string) (<-chan service.Event, error)
}

type QueryHandler struct {
	answers AnswerStreamer
}

func NewQueryHandler(answers AnswerStreamer) *QueryHandler {
	return &QueryHandler{answers: answers}
}

type QueryRequest struct {
	Question string `json:"question"`
}

// Query answers a question against the owner's persistent knowledge base.
// The response is an SSE stream of SUCCESS fragments closed by a single END
// (or terminal ERROR) event.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	events, err := h.answers.AnswerFromKnowledgeBase(r.Context(), ownerID, req.Question)
	if err != nil {
		handleAnswerError(w, err)
		return
	}

	streamEvents(w, events)
}

// handleAnswerError distinguishes pre-stream failures. Validation problems are
// plain client errors; anything that happened after the request was accepted
// (embedding outage, store failure) is reported in the stream's own framing so
// clients only ever parse one shape per endpoint.
func handleAnswerError(w http.ResponseWriter, err error) {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) && domainErr.Code == domain.ErrCodeValidation {
		api.HandleError(w, err)
		return
	}

	stream := api.NewStreamWriter(w)
	stream.Fail(err.Error())
}

// streamEvents drains the service event channel into SSE frames. The channel
// contract guarantees at most one terminal event, but a producer that closes
// without one still yields a well-formed stream here.
func streamEvents(w http.ResponseWriter, events <-chan service.Event) {
	stream := api.NewStreamWriter(w)

	for ev := range events {
		switch ev.Kind {
		case service.EventFragment:
			stream.Send(ev.Text)
		case service.EventError:
			stream.Fail(ev.Text)
		case service.EventEnd:
			stream.End()
		}
	}

	if !stream.Closed() {
		stream.End()
	}
}
