package status

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/redwatch/redwatch/internal/config"
	"github.com/redwatch/redwatch/internal/guard"
)

// Snapshot is a read-only view of the running instance and its log files.
type Snapshot struct {
	Active   bool             `json:"active"`
	PID      int              `json:"pid,omitempty"`      // supervisor pid from the marker
	Children map[string]int   `json:"children,omitempty"` // task name -> live child pid
	LogSizes map[string]int64 `json:"log_sizes"`          // log file name -> byte size
}

// Reporter builds status snapshots. Reading goes through the Guard, so the
// stale-marker purge side effect applies here too; nothing else is mutated.
type Reporter struct {
	Guard  *guard.Guard
	PIDDir string
	LogDir string
}

// NewReporter builds a Reporter from supervisor config.
func NewReporter(cfg *config.Config) *Reporter {
	return &Reporter{
		Guard:  guard.New(cfg.MarkerPath()),
		PIDDir: cfg.PIDDir,
		LogDir: cfg.LogDir,
	}
}

// Report returns the current snapshot.
func (r *Reporter) Report() Snapshot {
	snap := Snapshot{
		Children: map[string]int{},
		LogSizes: map[string]int64{},
	}
	if r.Guard.IsActive() {
		snap.Active = true
		snap.PID, _ = r.Guard.ReadPID()
		snap.Children = r.liveChildren()
	}
	snap.LogSizes = r.logSizes()
	return snap
}

// liveChildren reads the per-task pid files next to the marker and keeps
// the ones whose process is still alive.
func (r *Reporter) liveChildren() map[string]int {
	out := map[string]int{}
	entries, err := os.ReadDir(r.PIDDir)
	if err != nil {
		return out
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".pid") || name == config.MarkerName {
			continue
		}
		b, err := os.ReadFile(filepath.Join(r.PIDDir, name))
		if err != nil {
			continue
		}
		first, _, _ := strings.Cut(string(b), "\n")
		pid, err := strconv.Atoi(strings.TrimSpace(first))
		if err != nil || !guard.PidAlive(pid) {
			continue
		}
		out[strings.TrimSuffix(name, ".pid")] = pid
	}
	return out
}

func (r *Reporter) logSizes() map[string]int64 {
	out := map[string]int64{}
	entries, err := os.ReadDir(r.LogDir)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out[e.Name()] = info.Size()
	}
	return out
}
