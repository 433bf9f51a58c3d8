package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/agentforge/internal/apperror"
)

// Config holds the orchestrator's execution policy.
type Config struct {
	// RunTimeout is the hard wall-clock bound for an ephemeral run.
	RunTimeout time.Duration
	// StartupGrace is how long a long-running service must survive before
	// its start is reported as successful.
	StartupGrace time.Duration
	// ServiceDeps are appended to the inferred dependency list when starting
	// a long-running service (the generated UIs need their framework even
	// when the source never imports it by the name pip knows).
	ServiceDeps []string
	// RepairServices routes an early service exit through the same single
	// repair-and-restart round that ephemeral runs get. Off by default:
	// services usually fail fast and are regenerated by the caller's own
	// loop instead.
	RepairServices bool
}

// DefaultConfig mirrors the bounds the system was tuned with: 30s per run,
// a 5 second liveness window for services.
func DefaultConfig() Config {
	return Config{
		RunTimeout:   30 * time.Second,
		StartupGrace: 5 * time.Second,
		ServiceDeps:  []string{"streamlit"},
	}
}

// Orchestrator sequences inference, provisioning, execution and the single
// repair round, and normalizes every outcome into a Result. It also keeps
// the registry of live long-running services started through it.
//
// Per request the state machine is strictly sequential:
//
//	Inferring -> Provisioning -> Running -> Success
//	                                     -> Repairing -> ReRunning -> Success | Failed
//
// The re-run reuses the same environment and the original dependency list;
// a fix that introduces a new import will fail for that new reason, which is
// the accepted cost of bounding repair to one round.
type Orchestrator struct {
	prov     Provisioner
	inferrer *Inferencer
	repairer *Repairer
	cfg      Config
	logger   *slog.Logger

	mu       sync.Mutex
	services map[string]Process
}

var _ Executor = (*Orchestrator)(nil)

func NewOrchestrator(prov Provisioner, inferrer *Inferencer, repairer *Repairer, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultConfig().RunTimeout
	}
	if cfg.StartupGrace <= 0 {
		cfg.StartupGrace = DefaultConfig().StartupGrace
	}
	return &Orchestrator{
		prov:     prov,
		inferrer: inferrer,
		repairer: repairer,
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]Process),
	}
}

// Execute validates the request's source by running it to completion in a
// fresh environment. Failures of any step come back as a Result with Success
// false and diagnostic text; the error return is reserved for context
// cancellation and unsupported requests.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if err := checkLanguage(req.Language); err != nil {
		return nil, err
	}

	deps := o.inferrer.Infer(ctx, req.Source)

	env, err := o.prov.Create(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return failure(start, fmt.Sprintf("provisioning environment: %v", err)), nil
	}
	defer o.destroy(env)

	if err := env.Populate(ctx, deps); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return failure(start, fmt.Sprintf("failed to set up environment: %v", err)), nil
	}

	run, err := env.Run(ctx, req.Source, o.cfg.RunTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return failure(start, fmt.Sprintf("running program: %v", err)), nil
	}

	if run.ExitCode == 0 {
		return &Result{
			Success:    true,
			Stdout:     run.Stdout,
			DurationMS: time.Since(start).Milliseconds(),
		}, nil
	}

	o.logger.Info("program failed, attempting repair",
		slog.String("env", env.ID()),
		slog.Int("exitCode", run.ExitCode),
	)

	fixed, err := o.repairer.Repair(ctx, req.Source, run.Stderr, deps)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res := failure(start, run.Stderr)
		res.Stdout = run.Stdout
		return res, nil
	}

	// Exactly one re-run, in the same environment. Dependencies are not
	// re-inferred for the corrected source.
	rerun, err := env.Run(ctx, fixed, o.cfg.RunTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res := failure(start, fmt.Sprintf("running corrected program: %v", err))
		res.FixedSource = fixed
		return res, nil
	}

	res := &Result{
		Success:     rerun.ExitCode == 0,
		Stdout:      rerun.Stdout,
		FixedSource: fixed,
		DurationMS:  time.Since(start).Milliseconds(),
	}
	if !res.Success {
		res.Stderr = rerun.Stderr
	}
	return res, nil
}

// StartService launches the request's source as a long-running background
// service. Survival past the grace window counts as success and hands back a
// process ID for StopService; an early exit is a failure with captured
// stderr (optionally routed through one repair round, per config).
func (o *Orchestrator) StartService(ctx context.Context, req Request) (*StartResult, error) {
	if err := checkLanguage(req.Language); err != nil {
		return nil, err
	}

	deps := o.inferrer.Infer(ctx, req.Source)
	deps = dedupe(append(deps, o.cfg.ServiceDeps...))

	env, err := o.prov.Create(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &StartResult{Error: fmt.Sprintf("provisioning environment: %v", err)}, nil
	}

	if err := env.Populate(ctx, deps); err != nil {
		o.destroy(env)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &StartResult{Error: fmt.Sprintf("failed to set up environment: %v", err)}, nil
	}

	proc, err := env.Start(ctx, req.Source, o.cfg.StartupGrace)
	if err != nil {
		var startErr *StartupError
		if o.cfg.RepairServices && errors.As(err, &startErr) {
			proc, err = o.repairAndRestart(ctx, env, req.Source, startErr.Stderr, deps)
		}
	}
	if err != nil {
		o.destroy(env)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &StartResult{Error: startErrText(err)}, nil
	}

	// Ownership of the process passes to the caller; the environment is torn
	// down by Stop, not here.
	o.mu.Lock()
	o.services[proc.ID()] = proc
	o.mu.Unlock()

	o.logger.Info("service started",
		slog.String("process", proc.ID()),
		slog.String("env", env.ID()),
	)
	return &StartResult{Success: true, ProcessID: proc.ID()}, nil
}

// StopService terminates a previously started service and destroys its
// environment.
func (o *Orchestrator) StopService(id string) error {
	o.mu.Lock()
	proc, ok := o.services[id]
	delete(o.services, id)
	o.mu.Unlock()

	if !ok {
		return apperror.NotFound("service", id)
	}
	return proc.Stop()
}

// Shutdown stops every service still registered. Called on server teardown.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	procs := make([]Process, 0, len(o.services))
	for _, p := range o.services {
		procs = append(procs, p)
	}
	o.services = make(map[string]Process)
	o.mu.Unlock()

	for _, p := range procs {
		if err := p.Stop(); err != nil {
			o.logger.Error("failed to stop service",
				slog.String("process", p.ID()),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (o *Orchestrator) repairAndRestart(ctx context.Context, env Environment, source, stderrText string, deps []string) (Process, error) {
	fixed, err := o.repairer.Repair(ctx, source, stderrText, deps)
	if err != nil {
		return nil, err
	}
	return env.Start(ctx, fixed, o.cfg.StartupGrace)
}

// destroy tears an environment down, logging rather than propagating any
// failure so cleanup never masks the primary error.
func (o *Orchestrator) destroy(env Environment) {
	if err := env.Destroy(); err != nil {
		o.logger.Error("failed to destroy environment",
			slog.String("env", env.ID()),
			slog.String("error", err.Error()),
		)
	}
}

func checkLanguage(lang string) error {
	if lang != "" && lang != LanguagePython {
		return apperror.ValidationFailed("language", fmt.Sprintf("unsupported language %q", lang))
	}
	return nil
}

func failure(start time.Time, stderrText string) *Result {
	return &Result{
		Stderr:     stderrText,
		DurationMS: time.Since(start).Milliseconds(),
	}
}

func startErrText(err error) string {
	var startErr *StartupError
	if errors.As(err, &startErr) {
		return startErr.Stderr
	}
	return err.Error()
}
