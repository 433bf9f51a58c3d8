// Package venv provisions disposable Python virtual environments and runs
// untrusted programs inside them. Each environment is a uniquely named
// directory under the configured base dir, owned by exactly one request and
// removed on every terminal path.
package venv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/agentforge/internal/executor"
)

// Provisioner creates virtualenv sandboxes. Safe for concurrent use: each
// Create call allocates a fresh xid-named directory and shares nothing with
// other environments. The host pip cache is shared across installs; pip
// handles its own locking there.
type Provisioner struct {
	cfg    Config
	logger *slog.Logger
}

var _ executor.Provisioner = (*Provisioner)(nil)

func NewProvisioner(cfg Config, logger *slog.Logger) *Provisioner {
	def := DefaultConfig()
	if cfg.BaseDir == "" {
		cfg.BaseDir = def.BaseDir
	}
	if cfg.Python == "" {
		cfg.Python = def.Python
	}
	if cfg.InstallTimeout <= 0 {
		cfg.InstallTimeout = def.InstallTimeout
	}
	if cfg.ServiceRunner == "" {
		cfg.ServiceRunner = def.ServiceRunner
	}
	return &Provisioner{cfg: cfg, logger: logger}
}

// Create builds a fresh virtual environment and returns it ready for
// population. A failed creation leaves nothing behind.
func (p *Provisioner) Create(ctx context.Context) (executor.Environment, error) {
	if err := os.MkdirAll(p.cfg.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("venv: creating base dir: %w", err)
	}

	id := xid.New().String()
	root := filepath.Join(p.cfg.BaseDir, id)

	cmd := exec.CommandContext(ctx, p.cfg.Python, "-m", "venv", root)
	if out, err := cmd.CombinedOutput(); err != nil {
		// Best-effort removal of whatever venv managed to lay down.
		os.RemoveAll(root)
		return nil, fmt.Errorf("venv: creating environment: %w: %s", err, strings.TrimSpace(string(out)))
	}

	p.logger.Debug("environment created", slog.String("env", id))
	return &Environment{
		id:     id,
		root:   root,
		cfg:    p.cfg,
		logger: p.logger,
	}, nil
}

// Environment is a single provisioned virtualenv.
type Environment struct {
	id     string
	root   string
	cfg    Config
	logger *slog.Logger
}

var _ executor.Environment = (*Environment)(nil)

func (e *Environment) ID() string { return e.id }

// Root returns the environment's directory. Exposed for tests.
func (e *Environment) Root() string { return e.root }

// binPath resolves a console script inside the environment, accounting for
// the Scripts/ layout on Windows.
func (e *Environment) binPath(name string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(e.root, "Scripts", name)
	}
	return filepath.Join(e.root, "bin", name)
}

// Populate writes the dependency manifest and installs it with the
// environment's pip. The manifest is plain UTF-8, one package name per line,
// and stays in the environment for inspection. Installer output is captured
// combined; a non-zero exit comes back as *executor.PopulationError.
func (e *Environment) Populate(ctx context.Context, deps []string) error {
	manifest := filepath.Join(e.root, "requirements.txt")
	if err := os.WriteFile(manifest, []byte(manifestContent(deps)), 0o644); err != nil {
		return fmt.Errorf("venv: writing manifest: %w", err)
	}

	if len(deps) == 0 {
		return nil
	}

	installCtx, cancel := context.WithTimeout(ctx, e.cfg.InstallTimeout)
	defer cancel()

	cmd := exec.CommandContext(installCtx, e.binPath("pip"), "install", "-r", manifest)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &executor.PopulationError{Output: strings.TrimSpace(string(out))}
	}

	e.logger.Debug("dependencies installed",
		slog.String("env", e.id),
		slog.Int("count", len(deps)),
	)
	return nil
}

// Destroy removes the environment directory. Idempotent: destroying an
// already-removed environment is not an error.
func (e *Environment) Destroy() error {
	err := os.RemoveAll(e.root)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("venv: removing environment: %w", err)
	}
	return nil
}

func manifestContent(deps []string) string {
	if len(deps) == 0 {
		return ""
	}
	return strings.Join(deps, "\n") + "\n"
}
