// Package handler contains the HTTP layer: request parsing, response
// shaping, and nothing else. Business decisions live in the service and
// executor packages.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/agentforge/internal/apperror"
	"github.com/sakif/agentforge/internal/executor"
)

// ExecuteHandler handles ephemeral code execution requests.
type ExecuteHandler struct {
	exec   executor.Executor
	logger *slog.Logger
}

// NewExecuteHandler creates a new ExecuteHandler. A nil executor is allowed
// and makes the endpoint report unavailable.
func NewExecuteHandler(exec executor.Executor, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		exec:   exec,
		logger: logger,
	}
}

// HandleExecute runs the submitted program to completion in a disposable
// sandbox and reports the normalized outcome.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	if h.exec == nil {
		writeError(w, apperror.Unavailable("code execution is not configured"))
		return
	}

	var req executor.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid execution request body", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	if req.Source == "" {
		writeError(w, apperror.ValidationFailed("source", "source cannot be empty"))
		return
	}

	h.logger.Info("executing program", slog.Int("sourceBytes", len(req.Source)))

	result, err := h.exec.Execute(r.Context(), req)
	if err != nil {
		h.logger.Error("execution failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
