package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/agentforge/internal/apperror"
	"github.com/sakif/agentforge/internal/service"
)

// AddDocumentRequest stores one knowledge entry.
type AddDocumentRequest struct {
	Content string `json:"content"`
	// Kind labels the entry (code snippet, documentation, example...).
	Kind string `json:"kind,omitempty"`
}

// KnowledgeHandler exposes the knowledge base: documents that ground
// generation when a request opts in.
type KnowledgeHandler struct {
	knowledge *service.KnowledgeService
	logger    *slog.Logger
}

// NewKnowledgeHandler creates a new KnowledgeHandler.
func NewKnowledgeHandler(knowledge *service.KnowledgeService, logger *slog.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge, logger: logger}
}

// HandleAdd stores a document. Re-adding identical content refreshes the
// existing entry.
//
// HTTP: POST /api/documents
func (h *KnowledgeHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req AddDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid document request body", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	doc, err := h.knowledge.Add(r.Context(), req.Content, req.Kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// HandleList lists documents, or searches when a query is given.
//
// HTTP: GET /api/documents?q=...&limit=20&offset=0
func (h *KnowledgeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if query := r.URL.Query().Get("q"); query != "" {
		docs, err := h.knowledge.Search(r.Context(), query, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
		return
	}

	docs, err := h.knowledge.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// HandleDelete removes a document.
//
// HTTP: DELETE /api/documents/{id}
func (h *KnowledgeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.knowledge.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
