package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"github.com/showheysas/tech0notta/internal/errs"
	"github.com/showheysas/tech0notta/internal/launcher"
	"github.com/showheysas/tech0notta/internal/registry"
)

type process struct {
	cmd    *exec.Cmd
	exited chan struct{}
}

// ExecLauncher runs each worker as a child process of the backend. The
// handle is the child's pid.
type ExecLauncher struct {
	binary string
	args   []string
	procs  *registry.Map[launcher.Handle, *process]
}

func NewExecLauncher(binary string, args ...string) *ExecLauncher {
	return &ExecLauncher{
		binary: binary,
		args:   args,
		procs:  registry.New[launcher.Handle, *process](),
	}
}

func (l *ExecLauncher) Launch(ctx context.Context, spec launcher.Spec) (launcher.Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cmd := exec.Command(l.binary, l.args...)
	cmd.Env = append(os.Environ(), spec.Env()...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return "", &errs.LaunchError{Output: err.Error(), Err: err}
	}

	h := launcher.Handle(strconv.Itoa(cmd.Process.Pid))
	p := &process{cmd: cmd, exited: make(chan struct{})}
	l.procs.Put(h, p)
	go func() {
		err := cmd.Wait()
		l.procs.Delete(h)
		close(p.exited)
		slog.Info("worker process exited", "session_id", spec.SessionID, "pid", string(h), "error", err)
	}()
	slog.Info("worker process started", "session_id", spec.SessionID, "meeting_id", spec.MeetingID, "pid", string(h))
	return h, nil
}

// Stop sends SIGTERM and escalates to SIGKILL when ctx expires first.
func (l *ExecLauncher) Stop(ctx context.Context, h launcher.Handle) error {
	p, ok := l.procs.Get(h)
	if !ok {
		return nil
	}
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		select {
		case <-p.exited:
			return nil
		default:
		}
		return fmt.Errorf("signal worker %s: %w", h, err)
	}
	select {
	case <-p.exited:
		return nil
	case <-ctx.Done():
		_ = p.cmd.Process.Kill()
		<-p.exited
		return ctx.Err()
	}
}
