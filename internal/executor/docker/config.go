package docker

import (
	"time"
)

// Config holds the settings for the containerized backend.
type Config struct {
	// Image is the container image programs run in. It must ship the
	// interpreter; this backend installs nothing at request time.
	Image string
	// MemoryLimit caps container memory, in bytes.
	MemoryLimit int64
	// CPULimit is the CPU share available to a container.
	CPULimit float64
	// Timeout is the hard wall-clock bound per execution.
	Timeout time.Duration
	// PoolSize is how many pre-warmed containers to keep ready.
	PoolSize int
}

// DefaultConfig matches the sandbox this backend is meant for: a small
// Python image with tight resource bounds.
func DefaultConfig() Config {
	return Config{
		Image:       "python:3.12-alpine",
		MemoryLimit: 128 * 1024 * 1024,
		CPULimit:    0.5,
		Timeout:     30 * time.Second,
		PoolSize:    3,
	}
}
