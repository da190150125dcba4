package supervisor

import (
	"log/slog"
	"syscall"
	"time"

	"github.com/redwatch/redwatch/internal/guard"
)

// StopRunning asks an already-running instance to shut down by signaling
// the PID recorded in the marker, then waits up to wait for the instance
// to disappear. Stopping when nothing runs is not an error: it logs a
// warning and reports false.
func StopRunning(markerPath string, wait time.Duration) (stopped bool, err error) {
	g := guard.New(markerPath)
	if !g.IsActive() {
		slog.Warn("no running instance to stop")
		return false, nil
	}
	pid, err := g.ReadPID()
	if err != nil {
		return false, err
	}
	slog.Info("stopping instance", "pid", pid)
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return false, err
	}
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if !guard.PidAlive(pid) {
			slog.Info("instance stopped", "pid", pid)
			return true, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	// The instance drives its own graceful shutdown; if it is still
	// winding down past our wait, leave it to finish.
	slog.Warn("instance still shutting down", "pid", pid)
	return true, nil
}
