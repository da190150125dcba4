package monitor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// ErrSpawn wraps launch failures (missing executable, permission denied).
var ErrSpawn = errors.New("spawn failed")

// Child is an opaque handle to one spawned external process. A handle is
// created by Start and never reused: a restart produces a fresh Child and
// the old one is discarded.
type Child struct {
	spec      Spec
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time
	done      chan struct{} // closed by the reaper when cmd.Wait returns

	mu        sync.Mutex
	exitErr   error
	outCloser io.WriteCloser
	errCloser io.WriteCloser
}

// Start launches the spec's command with its own process group and rotating
// log files, writes the <name>.pid file, and attaches a reaper goroutine
// so liveness checks never block.
func Start(spec Spec) (*Child, error) {
	cmd := spec.BuildCommand()
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	c := &Child{spec: spec, cmd: cmd, done: make(chan struct{})}
	if spec.Log.Dir != "" {
		outW, errW, err := spec.Log.Writers(spec.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, spec.Name, err)
		}
		c.outCloser, c.errCloser = outW, errW
		cmd.Stdout = outW
		cmd.Stderr = errW
	} else {
		null, _ := os.OpenFile(os.DevNull, os.O_RDWR, 0)
		cmd.Stdout = null
		cmd.Stderr = null
	}

	if err := cmd.Start(); err != nil {
		c.closeWriters()
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawn, spec.Name, err)
	}
	c.pid = cmd.Process.Pid
	c.startedAt = time.Now()
	c.writePIDFile()
	go c.reap()
	return c, nil
}

// reap waits for the process to exit, records the exit error, and closes
// the done channel. Exactly one reaper per Child.
func (c *Child) reap() {
	err := c.cmd.Wait()
	c.mu.Lock()
	c.exitErr = err
	c.mu.Unlock()
	c.closeWriters()
	c.removePIDFile()
	close(c.done)
}

// Alive is a non-blocking liveness probe.
func (c *Child) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the process has exited and been reaped.
func (c *Child) Done() <-chan struct{} { return c.done }

// PID returns the spawned process id.
func (c *Child) PID() int { return c.pid }

// Name returns the task name from the spec.
func (c *Child) Name() string { return c.spec.Name }

// StartedAt returns when the process was launched.
func (c *Child) StartedAt() time.Time { return c.startedAt }

// ExitErr returns the recorded exit error once the process has been reaped.
func (c *Child) ExitErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitErr
}

// Stop sends SIGTERM to the child's process group, waits up to grace for
// the reaper to observe the exit, then escalates to SIGKILL. Returns the
// exit error recorded by the reaper, if any.
func (c *Child) Stop(grace time.Duration) error {
	if !c.Alive() {
		return nil
	}
	_ = syscall.Kill(-c.pid, syscall.SIGTERM)
	select {
	case <-c.done:
	case <-time.After(grace):
		_ = syscall.Kill(-c.pid, syscall.SIGKILL)
		select {
		case <-c.done:
		case <-time.After(200 * time.Millisecond):
			// best-effort; the reaper will still record the exit
		}
	}
	return c.ExitErr()
}

// Kill force-terminates the process group without a grace period.
func (c *Child) Kill() {
	if !c.Alive() {
		return
	}
	_ = syscall.Kill(-c.pid, syscall.SIGKILL)
	select {
	case <-c.done:
	case <-time.After(200 * time.Millisecond):
	}
}

func (c *Child) closeWriters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outCloser != nil {
		_ = c.outCloser.Close()
		c.outCloser = nil
	}
	if c.errCloser != nil {
		_ = c.errCloser.Close()
		c.errCloser = nil
	}
}

// PIDFilePath returns the path of the per-child pid file, or "" when
// PIDDir is unset.
func (c *Child) PIDFilePath() string {
	if c.spec.PIDDir == "" {
		return ""
	}
	return filepath.Join(c.spec.PIDDir, c.spec.Name+".pid")
}

func (c *Child) writePIDFile() {
	path := c.PIDFilePath()
	if path == "" {
		return
	}
	_ = os.MkdirAll(filepath.Dir(path), 0o750)
	_ = os.WriteFile(path, []byte(strconv.Itoa(c.pid)+"\n"), 0o600)
}

// removePIDFile best-effort
func (c *Child) removePIDFile() {
	if path := c.PIDFilePath(); path != "" {
		_ = os.Remove(path)
	}
}
