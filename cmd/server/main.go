// Package main is the entry point for the agentforge server. It reads
// configuration from the environment, builds the LLM client and execution
// backend, and hands everything to internal/server.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sakif/agentforge/internal/codegen"
	"github.com/sakif/agentforge/internal/executor"
	"github.com/sakif/agentforge/internal/executor/docker"
	"github.com/sakif/agentforge/internal/executor/venv"
	"github.com/sakif/agentforge/internal/llm"
	"github.com/sakif/agentforge/internal/server"
	"github.com/sakif/agentforge/internal/spec"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := "data/agentforge.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	var deps server.Deps

	// Generation and repair need a Gemini API key. Without one the server
	// still runs: the library endpoints work, everything else reports
	// unavailable.
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		logger.Warn("GEMINI_API_KEY not set, generation and execution are disabled")
	} else {
		llmCfg := llm.DefaultGeminiConfig()
		llmCfg.APIKey = apiKey
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			llmCfg.Model = model
		}

		gemini, err := llm.NewGemini(context.Background(), llmCfg)
		if err != nil {
			logger.Error("failed to create Gemini client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer gemini.Close()

		deps.Analyzer = spec.NewAnalyzer(gemini, logger)
		deps.Codegen = codegen.NewGenerator(gemini, logger)

		orch := buildOrchestrator(gemini, logger)
		deps.Services = orch
		deps.Exec = buildExecutor(orch, logger)
		if closer, ok := deps.Exec.(io.Closer); ok {
			defer closer.Close()
		}
	}

	cfg := server.Config{
		Port:   port,
		DBPath: dbPath,
	}

	srv, err := server.New(cfg, deps, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildOrchestrator assembles the virtualenv execution pipeline: dependency
// inference, per-request sandboxes, and the single repair round.
func buildOrchestrator(gen llm.Generator, logger *slog.Logger) *executor.Orchestrator {
	venvCfg := venv.DefaultConfig()
	if dir := os.Getenv("SANDBOX_DIR"); dir != "" {
		venvCfg.BaseDir = dir
	}
	if python := os.Getenv("PYTHON"); python != "" {
		venvCfg.Python = python
	}

	return executor.NewOrchestrator(
		venv.NewProvisioner(venvCfg, logger),
		executor.NewInferencer(gen, logger),
		executor.NewRepairer(gen, logger),
		executor.DefaultConfig(),
		logger,
	)
}

// buildExecutor picks the ephemeral execution backend. The default is the
// orchestrator's virtualenv pipeline; EXECUTION_BACKEND=docker swaps in
// pre-warmed containers for fast dependency-free runs.
func buildExecutor(orch *executor.Orchestrator, logger *slog.Logger) executor.Executor {
	if os.Getenv("EXECUTION_BACKEND") != "docker" {
		return orch
	}

	backend, err := docker.New(docker.DefaultConfig(), logger)
	if err != nil {
		logger.Warn("docker backend unavailable, falling back to virtualenv execution",
			slog.String("error", err.Error()),
		)
		return orch
	}
	return backend
}
