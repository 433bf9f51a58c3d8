package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/agentforge/internal/apperror"
	"github.com/sakif/agentforge/internal/executor"
	"github.com/sakif/agentforge/internal/model"
	"github.com/sakif/agentforge/internal/service"
	"github.com/sakif/agentforge/internal/spec"
)

// SpecAnalyzer turns a natural-language prompt into a structured app spec.
type SpecAnalyzer interface {
	Analyze(ctx context.Context, prompt string) (*spec.AppSpec, error)
}

// CodeGenerator produces the source files for a spec.
type CodeGenerator interface {
	AgentCode(ctx context.Context, s *spec.AppSpec) (string, error)
	WorkflowCode(ctx context.Context, s *spec.AppSpec) (string, error)
	UICode(ctx context.Context, s *spec.AppSpec, agentCode string) string
}

// KnowledgeSearcher retrieves stored documents relevant to a query.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]model.Document, error)
}

// defaultAppName is used when neither the request nor the analyzed spec
// carries a name. A bundle is always saved under some name.
const defaultAppName = "generated_app"

// GenerateRequest asks for a complete app to be built from a prompt.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	// Name overrides the spec's own name for the saved bundle.
	Name string `json:"name,omitempty"`
	// UseWorkflow adds a workflow module alongside the agent code.
	UseWorkflow bool `json:"useWorkflow,omitempty"`
	// UseKnowledge searches the knowledge base with the prompt and folds the
	// matches into the generation context.
	UseKnowledge bool `json:"useKnowledge,omitempty"`
	// StartUI launches the generated UI as a long-running service after a
	// successful save.
	StartUI bool `json:"startUI,omitempty"`
}

// GenerateResponse reports everything the pipeline produced. Execution
// failure does not fail the request: the files and diagnostics come back so
// the caller can iterate on the prompt.
type GenerateResponse struct {
	Spec      *spec.AppSpec         `json:"spec"`
	Files     []model.AppFile       `json:"files"`
	Execution *executor.Result      `json:"execution"`
	App       *model.App            `json:"app,omitempty"`
	UI        *executor.StartResult `json:"ui,omitempty"`
	// Knowledge lists the documents that grounded this generation, when the
	// request opted in and any matched.
	Knowledge []model.Document `json:"knowledge,omitempty"`
}

// GenerateHandler runs the full prompt-to-app pipeline: analyze, generate,
// validate by execution, repair if needed, save, optionally start the UI.
type GenerateHandler struct {
	analyzer  SpecAnalyzer
	codegen   CodeGenerator
	exec      executor.Executor
	services  ServiceManager
	apps      *service.AppService
	knowledge KnowledgeSearcher
	logger    *slog.Logger
}

// NewGenerateHandler creates a new GenerateHandler. A nil executor, service
// manager, or knowledge searcher disables the corresponding pipeline stage.
func NewGenerateHandler(analyzer SpecAnalyzer, codegen CodeGenerator, exec executor.Executor, services ServiceManager, apps *service.AppService, knowledge KnowledgeSearcher, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{
		analyzer:  analyzer,
		codegen:   codegen,
		exec:      exec,
		services:  services,
		apps:      apps,
		knowledge: knowledge,
		logger:    logger,
	}
}

// HandleGenerate processes one generation request end to end.
//
// HTTP: POST /api/generate
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if h.analyzer == nil || h.codegen == nil {
		writeError(w, apperror.Unavailable("app generation is not configured"))
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid generate request body", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}
	if req.Prompt == "" {
		writeError(w, apperror.ValidationFailed("prompt", "prompt cannot be empty"))
		return
	}

	ctx := r.Context()

	// Knowledge retrieval is best effort: a search failure degrades to an
	// unaugmented prompt rather than failing the pipeline.
	var knowledge []model.Document
	prompt := req.Prompt
	if req.UseKnowledge && h.knowledge != nil {
		docs, err := h.knowledge.Search(ctx, req.Prompt, 0)
		if err != nil {
			h.logger.Warn("knowledge search failed, generating without context",
				slog.String("error", err.Error()))
		} else if len(docs) > 0 {
			knowledge = docs
			prompt += service.ContextBlock(docs)
			h.logger.Info("generation grounded on knowledge base",
				slog.Int("documents", len(docs)))
		}
	}

	appSpec, err := h.analyzer.Analyze(ctx, prompt)
	if err != nil {
		h.logger.Error("spec analysis failed", slog.String("error", err.Error()))
		writeError(w, apperror.Unavailable("could not analyze the prompt"))
		return
	}
	h.logger.Info("spec analyzed",
		slog.String("app", appSpec.Name),
		slog.Int("agents", len(appSpec.Agents)),
	)

	agentCode, err := h.codegen.AgentCode(ctx, appSpec)
	if err != nil {
		h.logger.Error("agent generation failed", slog.String("error", err.Error()))
		writeError(w, apperror.Unavailable("could not generate agent code"))
		return
	}

	var workflowCode string
	if req.UseWorkflow {
		workflowCode, err = h.codegen.WorkflowCode(ctx, appSpec)
		if err != nil {
			h.logger.Error("workflow generation failed", slog.String("error", err.Error()))
			writeError(w, apperror.Unavailable("could not generate workflow code"))
			return
		}
	}

	// Validate the agent code by running it. When the single repair round
	// produced a corrected program, the bundle keeps the fix regardless of
	// whether the re-run passed.
	var execResult *executor.Result
	if h.exec != nil {
		execResult, err = h.exec.Execute(ctx, executor.Request{Source: agentCode})
		if err != nil {
			writeError(w, err)
			return
		}
		if execResult.FixedSource != "" {
			agentCode = execResult.FixedSource
		}
	}

	uiCode := h.codegen.UICode(ctx, appSpec, agentCode)

	files := []model.AppFile{
		{Name: "agent.py", Source: agentCode},
	}
	if workflowCode != "" {
		files = append(files, model.AppFile{Name: "workflow.py", Source: workflowCode})
	}
	files = append(files, model.AppFile{Name: "app.py", Source: uiCode})

	resp := &GenerateResponse{
		Spec:      appSpec,
		Files:     files,
		Execution: execResult,
		Knowledge: knowledge,
	}

	name := req.Name
	if name == "" {
		name = appSpec.Name
	}
	if name == "" {
		name = defaultAppName
	}
	app, err := h.apps.Save(ctx, name, req.Prompt, files)
	if err != nil {
		writeError(w, err)
		return
	}
	resp.App = app

	if req.StartUI && h.services != nil {
		ui, err := h.services.StartService(ctx, executor.Request{Source: uiCode})
		if err != nil {
			writeError(w, err)
			return
		}
		resp.UI = ui
	}

	writeJSON(w, http.StatusOK, resp)
}
