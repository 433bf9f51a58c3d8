// Package executor contains the generate-execute-diagnose-repair core: it
// infers runtime dependencies from source text, provisions a disposable
// sandbox per request, runs the program under a wall-clock bound, and on
// failure requests a corrected program once before giving up.
package executor

import (
	"context"
	"fmt"
	"time"
)

// Language tags accepted in requests. Only Python is supported; the zero
// value defaults to it.
const LanguagePython = "python"

// Request describes one program to validate. Immutable once submitted.
type Request struct {
	Source   string `json:"source"`
	Language string `json:"language,omitempty"`
}

// Result is the terminal value returned to the caller for an ephemeral run.
// All step failures are normalized into this shape (Success false plus
// diagnostic text) rather than surfacing as Go errors.
type Result struct {
	Success bool   `json:"success"`
	Stdout  string `json:"stdout,omitempty"`
	Stderr  string `json:"stderr,omitempty"`
	// FixedSource carries the corrected program when a repair round ran,
	// whether or not the re-run succeeded, so the caller can persist or
	// display it in place of the original.
	FixedSource string `json:"fixedSource,omitempty"`
	// DurationMS is the total wall-clock time of the pipeline in
	// milliseconds. Raw time.Duration would serialize as nanoseconds.
	DurationMS int64 `json:"durationMs"`
}

// StartResult is the terminal value for a long-running start. On success
// ProcessID identifies the live service for a later Stop call.
type StartResult struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ProcessID string `json:"processId,omitempty"`
}

// RunResult captures one interpreter invocation inside an environment.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

// Executor runs code to completion in an isolated environment. Implemented
// by the Orchestrator (venv pipeline) and by the docker backend.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

// Environment is one provisioned sandbox: created by a Provisioner, owned by
// a single request, destroyed on every terminal path except a successful
// long-running start (where the returned Process takes over teardown).
type Environment interface {
	// ID returns the environment's unique identifier.
	ID() string
	// Populate installs the given dependency list into the sandbox. A
	// non-zero installer exit surfaces as *PopulationError; the sandbox is
	// left in place for the owner to destroy.
	Populate(ctx context.Context, deps []string) error
	// Run executes source to completion under a hard wall-clock timeout.
	// Timeouts are reported in the RunResult, not as an error.
	Run(ctx context.Context, source string, timeout time.Duration) (*RunResult, error)
	// Start launches source as a background service and waits out the grace
	// window. An exit within the window surfaces as *StartupError; survival
	// returns a live Process that owns both the child and the environment.
	Start(ctx context.Context, source string, grace time.Duration) (Process, error)
	// Destroy removes the sandbox. Idempotent; never errors on absence.
	Destroy() error
}

// Provisioner creates environments. Safe for concurrent use: every call
// yields a distinct identifier with no shared mutable state.
type Provisioner interface {
	Create(ctx context.Context) (Environment, error)
}

// Process is a live long-running service handed back to the caller. Stop
// kills the child, reaps it, and destroys the owning environment.
type Process interface {
	ID() string
	Stop() error
}

// PopulationError reports a non-zero exit from the package installer.
type PopulationError struct {
	Output string // combined installer output
}

func (e *PopulationError) Error() string {
	return fmt.Sprintf("installing dependencies: %s", e.Output)
}

// StartupError reports a service that exited inside the startup grace window.
type StartupError struct {
	Stderr string
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("service exited during startup: %s", e.Stderr)
}
