// Package docker is the alternate ephemeral execution backend: programs run
// inside pre-warmed, network-less containers instead of per-request
// virtualenvs. There is no dependency installation and no repair loop here;
// it trades those for fast, dependency-free validation runs.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/sakif/agentforge/internal/apperror"
	"github.com/sakif/agentforge/internal/executor"
)

// Backend implements executor.Executor on top of the Docker API.
type Backend struct {
	cli    *client.Client
	cfg    Config
	logger *slog.Logger
	pool   *pool
}

var _ executor.Executor = (*Backend)(nil)

// New connects to the Docker daemon, ensures the image is present, and
// starts warming the container pool.
func New(cfg Config, logger *slog.Logger) (*Backend, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker: creating client: %w", err)
	}

	pullCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger.Info("ensuring sandbox image is available", slog.String("image", cfg.Image))
	reader, err := cli.ImagePull(pullCtx, cfg.Image, image.PullOptions{})
	if err != nil {
		return nil, fmt.Errorf("docker: pulling image: %w", err)
	}
	defer reader.Close()
	// Drain to block until the pull completes.
	io.Copy(io.Discard, reader)

	b := &Backend{
		cli:    cli,
		cfg:    cfg,
		logger: logger,
	}
	b.pool = newPool(cli, cfg, logger)
	b.pool.start()
	return b, nil
}

// Close drains the pool and closes the client.
func (b *Backend) Close() error {
	b.pool.stop()
	return b.cli.Close()
}

// Execute runs the request's source in a container from the pool. The
// container is removed on every path; a timeout surfaces as a failed Result
// with a marker in stderr.
func (b *Backend) Execute(ctx context.Context, req executor.Request) (*executor.Result, error) {
	start := time.Now()

	if req.Language != "" && req.Language != executor.LanguagePython {
		return nil, apperror.ValidationFailed("language", fmt.Sprintf("unsupported language %q", req.Language))
	}

	containerID, err := b.pool.acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("docker: acquiring container: %w", err)
	}
	defer func() {
		removeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.cli.ContainerRemove(removeCtx, containerID, container.RemoveOptions{Force: true}); err != nil {
			b.logger.Error("failed to remove container",
				slog.String("id", containerID),
				slog.String("error", err.Error()),
			)
		}
	}()

	execCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	// The pooled container idles on sleep; the program runs as an exec.
	execResp, err := b.cli.ContainerExecCreate(execCtx, containerID, container.ExecOptions{
		AttachStdout: true,
		AttachStderr: true,
		Cmd:          []string{"python", "-c", req.Source},
	})
	if err != nil {
		return nil, fmt.Errorf("docker: creating exec: %w", err)
	}

	attachResp, err := b.cli.ContainerExecAttach(execCtx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("docker: attaching to exec: %w", err)
	}
	defer attachResp.Close()

	var stdout, stderr bytes.Buffer
	done := make(chan struct{})
	go func() {
		// stdcopy demultiplexes the attached stream into stdout and stderr.
		_, _ = stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader)
		close(done)
	}()

	exitCode := 0
	select {
	case <-done:
		inspect, err := b.cli.ContainerExecInspect(ctx, execResp.ID)
		if err == nil {
			exitCode = inspect.ExitCode
		}
	case <-execCtx.Done():
		exitCode = 124
		stderr.WriteString("\nExecution timed out.\n")
	}

	res := &executor.Result{
		Success:    exitCode == 0,
		Stdout:     stdout.String(),
		DurationMS: time.Since(start).Milliseconds(),
	}
	if !res.Success {
		res.Stderr = stderr.String()
	}
	return res, nil
}
