package docker_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/agentforge/internal/executor"
	"github.com/sakif/agentforge/internal/executor/docker"
)

func TestDockerBackend(t *testing.T) {
	if os.Getenv("CI") != "" {
		t.Skip("skipping docker test in CI environment")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := docker.DefaultConfig()
	cfg.PoolSize = 1

	backend, err := docker.New(cfg, logger)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	defer backend.Close()

	// Give the pool a moment to warm its first container.
	time.Sleep(2 * time.Second)

	t.Run("successful run", func(t *testing.T) {
		res, err := backend.Execute(context.Background(), executor.Request{
			Source: `print("hello from container")`,
		})
		assert.NoError(t, err)
		assert.True(t, res.Success)
		assert.Contains(t, res.Stdout, "hello from container")
		assert.Empty(t, res.Stderr)
	})

	t.Run("failure captures stderr", func(t *testing.T) {
		res, err := backend.Execute(context.Background(), executor.Request{
			Source: `print(1/0)`,
		})
		assert.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Stderr, "ZeroDivisionError")
	})

	t.Run("timeout is a failure", func(t *testing.T) {
		fastCfg := cfg
		fastCfg.Timeout = 2 * time.Second
		fast, err := docker.New(fastCfg, logger)
		assert.NoError(t, err)
		defer fast.Close()
		time.Sleep(1 * time.Second)

		res, err := fast.Execute(context.Background(), executor.Request{
			Source: `while True: pass`,
		})
		assert.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Stderr, "timed out")
	})

	t.Run("rejects unsupported language", func(t *testing.T) {
		_, err := backend.Execute(context.Background(), executor.Request{
			Source:   "puts 1",
			Language: "ruby",
		})
		assert.Error(t, err)
	})
}
