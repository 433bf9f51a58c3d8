package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/agentforge/internal/apperror"
	"github.com/sakif/agentforge/internal/executor"
)

// ServiceManager is the part of the orchestrator this handler needs: starting
// and stopping long-running services.
type ServiceManager interface {
	StartService(ctx context.Context, req executor.Request) (*executor.StartResult, error)
	StopService(id string) error
}

// ServiceHandler starts and stops long-running generated services.
type ServiceHandler struct {
	mgr    ServiceManager
	logger *slog.Logger
}

// NewServiceHandler creates a new ServiceHandler. A nil manager makes the
// endpoints report unavailable.
func NewServiceHandler(mgr ServiceManager, logger *slog.Logger) *ServiceHandler {
	return &ServiceHandler{mgr: mgr, logger: logger}
}

// HandleStart launches the submitted program as a background service. The
// outcome is reported in the body either way; only malformed requests and
// missing configuration map to error statuses.
//
// HTTP: POST /api/services
func (h *ServiceHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if h.mgr == nil {
		writeError(w, apperror.Unavailable("service execution is not configured"))
		return
	}

	var req executor.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid service request body", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}
	if req.Source == "" {
		writeError(w, apperror.ValidationFailed("source", "source cannot be empty"))
		return
	}

	result, err := h.mgr.StartService(r.Context(), req)
	if err != nil {
		h.logger.Error("service start failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleStop terminates a running service and tears down its environment.
//
// HTTP: DELETE /api/services/{id}
func (h *ServiceHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	if h.mgr == nil {
		writeError(w, apperror.Unavailable("service execution is not configured"))
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "service ID is required"))
		return
	}

	if err := h.mgr.StopService(id); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("service stopped", slog.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}
