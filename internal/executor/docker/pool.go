package docker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// pool keeps a buffer of pre-warmed containers so an execution never waits
// on a cold start. Containers are single-use: acquire hands one out and the
// backend removes it after the run.
type pool struct {
	cli        *client.Client
	cfg        Config
	logger     *slog.Logger
	containers chan string
	done       chan struct{}
	wg         sync.WaitGroup
	startOnce  sync.Once
}

func newPool(cli *client.Client, cfg Config, logger *slog.Logger) *pool {
	return &pool{
		cli:        cli,
		cfg:        cfg,
		logger:     logger,
		containers: make(chan string, cfg.PoolSize),
		done:       make(chan struct{}),
	}
}

func (p *pool) start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting container pool", slog.Int("size", p.cfg.PoolSize))
		p.wg.Add(1)
		go p.fill()
	})
}

func (p *pool) stop() {
	close(p.done)
	p.wg.Wait()

	for {
		select {
		case id := <-p.containers:
			p.remove(id)
		default:
			return
		}
	}
}

// acquire returns a ready container ID, blocking until one is warm or the
// context is canceled.
func (p *pool) acquire(ctx context.Context) (string, error) {
	select {
	case id := <-p.containers:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *pool) fill() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		default:
		}

		if len(p.containers) >= cap(p.containers) {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		id, err := p.create()
		if err != nil {
			p.logger.Error("failed to warm container", slog.String("error", err.Error()))
			time.Sleep(time.Second)
			continue
		}

		select {
		case p.containers <- id:
		case <-p.done:
			p.remove(id)
			return
		}
	}
}

// create starts an idle container with no network, a read-only rootfs, and
// the configured resource caps.
func (p *pool) create() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hostConfig := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:   p.cfg.MemoryLimit,
			NanoCPUs: int64(p.cfg.CPULimit * 1e9),
		},
		ReadonlyRootfs: true,
	}

	resp, err := p.cli.ContainerCreate(ctx, &container.Config{
		Image: p.cfg.Image,
		Cmd:   []string{"sleep", "infinity"},
		User:  "nobody",
	}, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("ContainerCreate: %w", err)
	}

	if err := p.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.remove(resp.ID)
		return "", fmt.Errorf("ContainerStart: %w", err)
	}
	return resp.ID, nil
}

func (p *pool) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}
