package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/agentforge/internal/service"
)

// AppHandler exposes the library of generated apps.
type AppHandler struct {
	apps   *service.AppService
	logger *slog.Logger
}

// NewAppHandler creates a new AppHandler.
func NewAppHandler(apps *service.AppService, logger *slog.Logger) *AppHandler {
	return &AppHandler{apps: apps, logger: logger}
}

// HandleList returns saved apps, newest first.
//
// HTTP: GET /api/apps?limit=20&offset=0
func (h *AppHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	apps, err := h.apps.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list apps", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

// HandleGet returns one app with its files.
//
// HTTP: GET /api/apps/{id}
func (h *AppHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	app, err := h.apps.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// HandleDelete removes an app from the library.
//
// HTTP: DELETE /api/apps/{id}
func (h *AppHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.apps.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("app deleted via API", slog.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}
