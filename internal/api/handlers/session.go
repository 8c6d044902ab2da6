package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/scaleworks/docquery/internal/api"
	"github.com/scaleworks/docquery/internal/api/middleware"
	"github.com/scaleworks/docquery/internal/service"
)

// SessionHandler serves the ephemeral question-answer exchange: attach
// documents to a throwaway session, then query it. The session's vectors are
// purged once the answer stream terminates.
type SessionHandler struct {
	answers AnswerStreamer
}

func NewSessionHandler(answers AnswerStreamer) *SessionHandler {
	return &SessionHandler{answers: answers}
}

type AttachDocumentsRequest struct {
	Documents []DocumentPayload `json:"documents"`
}

type AttachDocumentsResponse struct {
	SessionID     string                    `json:"session_id"`
	VectorIDs     []string                  `json:"vector_ids"`
	Failures      []DocumentFailureResponse `json:"failures,omitempty"`
	SkippedChunks int                       `json:"skipped_chunks,omitempty"`
}

// AttachDocuments indexes ad-hoc documents into a fresh session scope. The
// returned session id and vector ids must be replayed on the follow-up query.
func (h *SessionHandler) AttachDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AttachDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	docs := make([]service.Document, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = service.Document{FileName: d.FileName, Text: d.Text}
	}

	result, err := h.answers.AttachSessionDocuments(r.Context(), ownerID, docs)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := AttachDocumentsResponse{
		SessionID:     result.SessionID,
		VectorIDs:     result.VectorIDs,
		SkippedChunks: result.SkippedChunks,
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, DocumentFailureResponse{FileName: f.FileName, Reason: f.Reason})
	}

	api.Success(w, http.StatusCreated, resp)
}

type SessionQueryRequest struct {
	SessionID string   `json:"session_id"`
	Question  string   `json:"question"`
	VectorIDs []string `json:"vector_ids"`
}

// Query answers a question against a previously attached session and streams
// the answer as SSE. Whatever the outcome, the session's vectors are gone by
// the time the stream closes.
func (h *SessionHandler) Query(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SessionQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	events, err := h.answers.AnswerFromSession(r.Context(), req.SessionID, req.Question, req.VectorIDs)
	if err != nil {
		handleAnswerError(w, err)
		return
	}

	streamEvents(w, events)
}
