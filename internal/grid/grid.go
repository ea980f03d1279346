// Package grid boots standalone Selenium containers through the Docker
// daemon, one per browser.
package grid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/golang/glog"
)

const (
	webDriverPort = nat.Port("4444/tcp")
	// shmSize matches the 2g recommended for browsers in containers.
	shmSize = 2 << 30
)

// Image returns the standalone Selenium image for browser.
func Image(browser string) (string, error) {
	switch browser {
	case "chrome", "firefox", "edge":
		return "selenium/standalone-" + browser + ":latest", nil
	}
	return "", fmt.Errorf("no standalone Selenium image for browser %q", browser)
}

// Grid tracks the containers it started.
type Grid struct {
	cli *client.Client
	// ready polls the WebDriver status endpoint.
	ready func(ctx context.Context, addr string) error

	mu         sync.Mutex
	containers []string
}

// New connects to the Docker daemon described by the environment.
func New() (*Grid, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("connecting to docker: %w", err)
	}
	return &Grid{cli: cli, ready: waitReady}, nil
}

// Start pulls and runs the image for browser and returns the WebDriver
// address once the server reports ready.
func (g *Grid) Start(ctx context.Context, browser string) (string, error) {
	ref, err := Image(browser)
	if err != nil {
		return "", err
	}

	glog.Infof("Pulling %s", ref)
	rc, err := g.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return "", fmt.Errorf("pulling %s: %w", ref, err)
	}
	// The pull only completes once the progress stream is drained.
	_, err = io.Copy(io.Discard, rc)
	rc.Close()
	if err != nil {
		return "", fmt.Errorf("pulling %s: %w", ref, err)
	}

	resp, err := g.cli.ContainerCreate(ctx,
		&container.Config{
			Image:        ref,
			ExposedPorts: nat.PortSet{webDriverPort: struct{}{}},
		},
		&container.HostConfig{
			PortBindings: nat.PortMap{
				webDriverPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: ""}},
			},
			ShmSize: shmSize,
		},
		nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("creating %s container: %w", ref, err)
	}
	g.mu.Lock()
	g.containers = append(g.containers, resp.ID)
	g.mu.Unlock()

	if err := g.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("starting container %s: %w", resp.ID, err)
	}

	info, err := g.cli.ContainerInspect(ctx, resp.ID)
	if err != nil {
		return "", fmt.Errorf("inspecting container %s: %w", resp.ID, err)
	}
	if info.NetworkSettings == nil || len(info.NetworkSettings.Ports[webDriverPort]) == 0 {
		return "", fmt.Errorf("container %s does not publish %s", resp.ID, webDriverPort)
	}
	b := info.NetworkSettings.Ports[webDriverPort][0]
	addr := fmt.Sprintf("http://%s:%s/wd/hub", b.HostIP, b.HostPort)

	if err := g.ready(ctx, addr); err != nil {
		return "", fmt.Errorf("%s at %s: %w", ref, addr, err)
	}
	glog.Infof("Selenium %s grid ready at %s", browser, addr)
	return addr, nil
}

// Close removes every container the grid started.
func (g *Grid) Close(ctx context.Context) error {
	g.mu.Lock()
	ids := g.containers
	g.containers = nil
	g.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := g.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
			errs = append(errs, fmt.Errorf("removing container %s: %w", id, err))
		}
	}
	if err := g.cli.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// waitReady polls the /status endpoint under addr until it answers 200.
func waitReady(ctx context.Context, addr string) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/status", nil)
		if err != nil {
			return err
		}
		if resp, err := http.DefaultClient.Do(req); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("server not ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
