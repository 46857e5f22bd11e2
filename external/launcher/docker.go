package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/showheysas/tech0notta/internal/errs"
	"github.com/showheysas/tech0notta/internal/launcher"
)

const (
	sessionLabel   = "tech0notta.session_id"
	cleanupTimeout = 30 * time.Second
)

// runFunc runs a command to completion and returns its captured output.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// DockerLauncher runs each worker as a detached, self-removing container.
type DockerLauncher struct {
	image string
	run   runFunc
}

func NewDockerLauncher(image string) *DockerLauncher {
	return &DockerLauncher{image: image, run: runCommand}
}

func (d *DockerLauncher) Launch(ctx context.Context, spec launcher.Spec) (launcher.Handle, error) {
	args := []string{
		"run", "-d", "--rm",
		"--add-host=host.docker.internal:host-gateway",
		"--label", sessionLabel + "=" + spec.SessionID,
	}
	for _, kv := range spec.Env() {
		args = append(args, "-e", kv)
	}
	args = append(args, d.image)

	slog.Info("starting worker container", "session_id", spec.SessionID, "meeting_id", spec.MeetingID, "image", d.image)
	stdout, stderr, err := d.run(ctx, "docker", args...)
	if err != nil {
		if ctx.Err() != nil {
			// The daemon may have created the container before the client died.
			d.removeLabelled(spec.SessionID)
		}
		return "", &errs.LaunchError{Output: strings.TrimSpace(string(stderr)), Err: err}
	}
	id := strings.TrimSpace(string(stdout))
	if id == "" {
		return "", &errs.LaunchError{Output: strings.TrimSpace(string(stderr)), Err: errors.New("docker returned no container id")}
	}
	slog.Info("worker container started", "session_id", spec.SessionID, "container_id", shortID(id))
	return launcher.Handle(id), nil
}

func (d *DockerLauncher) Stop(ctx context.Context, h launcher.Handle) error {
	if h == "" {
		return nil
	}
	_, stderr, err := d.run(ctx, "docker", "stop", string(h))
	if err == nil {
		slog.Info("worker container stopped", "container_id", shortID(string(h)))
		return nil
	}
	if strings.Contains(string(stderr), "No such container") {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("docker stop %s: %w: %s", shortID(string(h)), err, strings.TrimSpace(string(stderr)))
}

func (d *DockerLauncher) removeLabelled(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	filter := "label=" + sessionLabel + "=" + sessionID
	stdout, stderr, err := d.run(ctx, "docker", "ps", "-aq", "--filter", filter)
	if err != nil {
		slog.Warn("failed to list containers of interrupted launch", "session_id", sessionID, "error", err, "stderr", strings.TrimSpace(string(stderr)))
		return
	}
	ids := strings.Fields(string(stdout))
	if len(ids) == 0 {
		return
	}
	if _, stderr, err := d.run(ctx, "docker", append([]string{"rm", "-f"}, ids...)...); err != nil {
		slog.Warn("failed to remove container of interrupted launch", "session_id", sessionID, "error", err, "stderr", strings.TrimSpace(string(stderr)))
		return
	}
	slog.Info("removed container of interrupted launch", "session_id", sessionID, "count", len(ids))
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
