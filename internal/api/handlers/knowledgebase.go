package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/scaleworks/docquery/internal/api"
	"github.com/scaleworks/docquery/internal/api/middleware"
	"github.com/scaleworks/docquery/internal/domain"
	"github.com/scaleworks/docquery/internal/pagination"
	"github.com/scaleworks/docquery/internal/service"
)

// KnowledgeBaseService is the ingest/list surface of the knowledge-base service.
type KnowledgeBaseService interface {
	IngestDocuments(ctx context.Context, ownerID string, docs []service.Document) (*service.IngestDocumentsResult, error)
	List(ctx context.Context, ownerID string, limit int, cursor string) (*pagination.PageResult[*domain.KnowledgeBase], error)
}

// KnowledgeBaseDeleter performs the ordered three-step deletion.
type KnowledgeBaseDeleter interface {
	DeleteKnowledgeBase(ctx context.Context, kbID, ownerID string) error
}

type KnowledgeBaseHandler struct {
	svc     KnowledgeBaseService
	deleter KnowledgeBaseDeleter
}

func NewKnowledgeBaseHandler(svc KnowledgeBaseService, deleter KnowledgeBaseDeleter) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{svc: svc, deleter: deleter}
}

type DocumentPayload struct {
	FileName string `json:"file_name"`
	Text     string `json:"text"`
}

type IngestRequest struct {
	Documents []DocumentPayload `json:"documents"`
}

type DocumentFailureResponse struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}

type KnowledgeBaseResponse struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	Vectors   int    `json:"vectors"`
	CreatedAt string `json:"created_at"`
}

type IngestResponse struct {
	KnowledgeBases []*KnowledgeBaseResponse  `json:"knowledge_bases"`
	Failures       []DocumentFailureResponse `json:"failures,omitempty"`
	SkippedChunks  int                       `json:"skipped_chunks,omitempty"`
}

func knowledgeBaseToResponse(kb *domain.KnowledgeBase) *KnowledgeBaseResponse {
	return &KnowledgeBaseResponse{
		ID:        kb.ID,
		FileName:  kb.FileName,
		Vectors:   len(kb.VectorIDs),
		CreatedAt: kb.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// Ingest accepts already-extracted plain-text documents for the authenticated
// owner. Per-document failures are reported alongside successes and never
// abort the request.
func (h *KnowledgeBaseHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Documents) == 0 {
		api.Error(w, http.StatusBadRequest, "at least one document is required")
		return
	}

	docs := make([]service.Document, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = service.Document{FileName: d.FileName, Text: d.Text}
	}

	result, err := h.svc.IngestDocuments(r.Context(), ownerID, docs)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := IngestResponse{SkippedChunks: result.SkippedChunks}
	for _, kb := range result.KnowledgeBases {
		resp.KnowledgeBases = append(resp.KnowledgeBases, knowledgeBaseToResponse(kb))
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, DocumentFailureResponse{FileName: f.FileName, Reason: f.Reason})
	}

	api.Success(w, http.StatusCreated, resp)
}

type ListKnowledgeBasesResponse struct {
	KnowledgeBases []*KnowledgeBaseResponse `json:"knowledge_bases"`
	Cursor         string                   `json:"cursor,omitempty"`
	HasMore        bool                     `json:"has_more"`
}

// List returns one page of the owner's knowledge bases.
func (h *KnowledgeBaseHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	page, err := h.svc.List(r.Context(), ownerID, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := ListKnowledgeBasesResponse{
		KnowledgeBases: make([]*KnowledgeBaseResponse, 0, len(page.Items)),
		Cursor:         page.Cursor,
		HasMore:        page.HasMore,
	}
	for _, kb := range page.Items {
		resp.KnowledgeBases = append(resp.KnowledgeBases, knowledgeBaseToResponse(kb))
	}

	api.Success(w, http.StatusOK, resp)
}

// Delete removes a knowledge base: vectors first, then the owner's index
// reference, then the record. A vector-deletion failure aborts with
// everything intact.
func (h *KnowledgeBaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	kbID := chi.URLParam(r, "id")
	if kbID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.deleter.DeleteKnowledgeBase(r.Context(), kbID, ownerID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"deleted": kbID})
}
