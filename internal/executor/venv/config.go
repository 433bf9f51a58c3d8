package venv

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds the settings for virtualenv-based sandboxes.
type Config struct {
	// BaseDir is where per-request environment directories are created.
	BaseDir string
	// Python is the host interpreter used to seed each environment.
	Python string
	// InstallTimeout bounds a single pip install invocation.
	InstallTimeout time.Duration
	// ServiceRunner is the console script (from the environment's bin
	// directory) used to launch long-running services, invoked as
	// `<runner> run <script>`.
	ServiceRunner string
}

// DefaultConfig provides sensible defaults for a Python sandbox.
func DefaultConfig() Config {
	return Config{
		BaseDir:        filepath.Join(os.TempDir(), "agentforge-envs"),
		Python:         "python3",
		InstallTimeout: 5 * time.Minute,
		ServiceRunner:  "streamlit",
	}
}
