package venv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/agentforge/internal/executor"
)

// timeoutExitCode matches the unix timeout(1) convention for a killed child.
const timeoutExitCode = 124

// Run writes source to a temporary script inside the environment and
// executes it with the environment's interpreter under a hard wall-clock
// bound. The child is always reaped and the script always removed, on
// timeout and on internal error alike. A timeout surfaces in the RunResult
// as exit code 124 with a marker appended to stderr, not as a Go error.
func (e *Environment) Run(ctx context.Context, source string, timeout time.Duration) (*executor.RunResult, error) {
	start := time.Now()

	script, err := e.writeScript(source)
	if err != nil {
		return nil, err
	}
	defer os.Remove(script)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, e.binPath("python"), script)
	cmd.Dir = e.root
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	res := &executor.RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.ExitCode = timeoutExitCode
		res.Stderr += "\nExecution timed out.\n"
	case runErr != nil:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("venv: running script: %w", runErr)
		}
	}

	e.logger.Debug("run finished",
		slog.String("env", e.id),
		slog.Int("exitCode", res.ExitCode),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

// Start launches source as a background service via the configured runner
// (`<runner> run <script>`) and blocks for the grace window. An exit inside
// the window is a startup failure carrying captured stderr. Silence past the
// window is treated as success and the live process is handed back; from
// that point the process owns the environment and tears it down on Stop.
func (e *Environment) Start(ctx context.Context, source string, grace time.Duration) (executor.Process, error) {
	script, err := e.writeScript(source)
	if err != nil {
		return nil, err
	}

	var stderr bytes.Buffer
	cmd := exec.Command(e.binPath(e.cfg.ServiceRunner), "run", script)
	cmd.Dir = e.root
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		os.Remove(script)
		return nil, fmt.Errorf("venv: starting service: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-done:
		os.Remove(script)
		return nil, &executor.StartupError{Stderr: stderr.String()}
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		os.Remove(script)
		return nil, ctx.Err()
	case <-time.After(grace):
		// Still alive after the grace window: success in progress. The
		// script stays on disk because the service is reading it.
		return &process{
			id:   xid.New().String(),
			cmd:  cmd,
			env:  e,
			done: done,
		}, nil
	}
}

func (e *Environment) writeScript(source string) (string, error) {
	f, err := os.CreateTemp(e.root, "script-*.py")
	if err != nil {
		return "", fmt.Errorf("venv: creating script file: %w", err)
	}
	if _, err := f.WriteString(source); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("venv: writing script file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("venv: closing script file: %w", err)
	}
	return f.Name(), nil
}

// process is a live long-running service plus the environment it runs in.
type process struct {
	id   string
	cmd  *exec.Cmd
	env  *Environment
	done chan error

	stopOnce sync.Once
	stopErr  error
}

var _ executor.Process = (*process)(nil)

func (p *process) ID() string { return p.id }

// Stop kills the service, reaps it, and destroys the environment. Safe to
// call more than once; later calls return the first outcome.
func (p *process) Stop() error {
	p.stopOnce.Do(func() {
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.stopErr = fmt.Errorf("venv: killing service: %w", err)
		}
		<-p.done
		if err := p.env.Destroy(); err != nil && p.stopErr == nil {
			p.stopErr = err
		}
	})
	return p.stopErr
}
