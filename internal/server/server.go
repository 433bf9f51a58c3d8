// Package server wires handlers, middleware and routes together and owns the
// HTTP lifecycle. main.go builds the dependencies; this package connects them.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/agentforge/internal/executor"
	"github.com/sakif/agentforge/internal/handler"
	"github.com/sakif/agentforge/internal/middleware"
	sqliteRepo "github.com/sakif/agentforge/internal/repository/sqlite"
	"github.com/sakif/agentforge/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port   int
	DBPath string
}

// Deps are the execution and generation components built in main. Any of them
// may be nil, in which case the corresponding endpoints report unavailable.
type Deps struct {
	Exec     executor.Executor
	Services *executor.Orchestrator
	Analyzer handler.SpecAnalyzer
	Codegen  handler.CodeGenerator
}

// Server is the HTTP server and the resources it owns: the database
// connection and the registry of running services, both released on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	deps   Deps
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and assembles the full route table.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		deps:   deps,
		logger: logger,
		db:     db,
	}
	s.setupRoutes()
	return s, nil
}

// setupRoutes configures middleware and the API surface:
//
//	POST   /api/generate       full prompt-to-app pipeline
//	POST   /api/execute        run a program in a disposable sandbox
//	POST   /api/services       start a long-running service
//	DELETE /api/services/{id}  stop a running service
//	GET    /api/apps           list saved apps
//	GET    /api/apps/{id}      get one app with files
//	DELETE /api/apps/{id}      delete an app
//	POST   /api/documents      add a knowledge document
//	GET    /api/documents      list documents, or search with ?q=
//	DELETE /api/documents/{id} delete a document
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	appService := service.NewAppService(s.db, s.logger)
	knowledgeService := service.NewKnowledgeService(s.db.Documents(), s.logger)

	// A nil *Orchestrator must stay a nil interface so handlers can detect it.
	var mgr handler.ServiceManager
	if s.deps.Services != nil {
		mgr = s.deps.Services
	}

	executeHandler := handler.NewExecuteHandler(s.deps.Exec, s.logger)
	serviceHandler := handler.NewServiceHandler(mgr, s.logger)
	generateHandler := handler.NewGenerateHandler(s.deps.Analyzer, s.deps.Codegen, s.deps.Exec, mgr, appService, knowledgeService, s.logger)
	appHandler := handler.NewAppHandler(appService, s.logger)
	knowledgeHandler := handler.NewKnowledgeHandler(knowledgeService, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/generate", generateHandler.HandleGenerate)
		r.Post("/execute", executeHandler.HandleExecute)
		r.Post("/services", serviceHandler.HandleStart)
		r.Delete("/services/{id}", serviceHandler.HandleStop)
		r.Get("/apps", appHandler.HandleList)
		r.Get("/apps/{id}", appHandler.HandleGet)
		r.Delete("/apps/{id}", appHandler.HandleDelete)
		r.Post("/documents", knowledgeHandler.HandleAdd)
		r.Get("/documents", knowledgeHandler.HandleList)
		r.Delete("/documents/{id}", knowledgeHandler.HandleDelete)
	})
}

// Start runs the server until a signal arrives, then shuts down gracefully:
// stop accepting connections, drain in-flight requests, stop every running
// generated service, and close the database.
func (s *Server) Start() error {
	defer s.db.Close()
	if s.deps.Services != nil {
		defer s.deps.Services.Shutdown()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
		// Generation requests hold the connection through LLM calls and a
		// sandboxed run, so the write timeout is generous.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
