package guard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrAlreadyRunning is returned by Acquire when a live instance owns the marker.
var ErrAlreadyRunning = errors.New("an instance is already running")

// Guard enforces the single-instance invariant through a marker file that
// holds the supervisor's own PID. A marker whose PID is no longer alive is
// stale and is purged the next time it is read.
type Guard struct {
	MarkerPath string
}

// New returns a Guard for the given marker path.
func New(markerPath string) *Guard { return &Guard{MarkerPath: markerPath} }

// PidAlive reports whether a process with the given pid exists.
// EPERM means the process exists but belongs to another user.
func PidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// ReadPID reads the marker and returns the recorded PID.
// It does not probe liveness; callers wanting the stale-purge semantics
// should use IsActive.
func (g *Guard) ReadPID() (int, error) {
	b, err := os.ReadFile(g.MarkerPath)
	if err != nil {
		return 0, err
	}
	first, _, _ := strings.Cut(string(b), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0, fmt.Errorf("invalid pid in %s: %w", g.MarkerPath, err)
	}
	return pid, nil
}

// IsActive reports whether a live instance owns the marker. A marker that
// exists but references a dead process is removed as a side effect.
func (g *Guard) IsActive() bool {
	pid, err := g.ReadPID()
	if err != nil {
		return false
	}
	if PidAlive(pid) {
		return true
	}
	// Stale marker: the recorded process is gone. Purge so later reads
	// do not trip over it.
	_ = os.Remove(g.MarkerPath)
	return false
}

// Acquire records the current process as the active instance.
// It fails with ErrAlreadyRunning when a live instance holds the marker.
func (g *Guard) Acquire() error {
	if g.IsActive() {
		return ErrAlreadyRunning
	}
	if err := os.MkdirAll(filepath.Dir(g.MarkerPath), 0o750); err != nil {
		return fmt.Errorf("create marker dir: %w", err)
	}
	pid := os.Getpid()
	if err := os.WriteFile(g.MarkerPath, []byte(strconv.Itoa(pid)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write marker %s: %w", g.MarkerPath, err)
	}
	return nil
}

// Release removes the marker. Safe to call when no marker exists.
func (g *Guard) Release() {
	_ = os.Remove(g.MarkerPath)
}
