package status

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/redwatch/redwatch/internal/config"
	"github.com/redwatch/redwatch/internal/guard"
)

func newTestReporter(t *testing.T) (*Reporter, string) {
	t.Helper()
	dir := t.TempDir()
	r := &Reporter{
		Guard:  guard.New(filepath.Join(dir, config.MarkerName)),
		PIDDir: dir,
		LogDir: dir,
	}
	return r, dir
}

func TestReportInactive(t *testing.T) {
	r, _ := newTestReporter(t)
	snap := r.Report()
	if snap.Active {
		t.Fatalf("expected inactive with no marker")
	}
	if snap.PID != 0 {
		t.Fatalf("pid should be zero when inactive, got %d", snap.PID)
	}
}

func TestReportActiveWithChildrenAndLogs(t *testing.T) {
	r, dir := newTestReporter(t)
	if err := r.Guard.Acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	// A live child pid file (this test process) and a dead one.
	if err := os.WriteFile(filepath.Join(dir, "scraper.pid"), []byte(strconv.Itoa(os.Getpid())+"\n"), 0o600); err != nil {
		t.Fatalf("write child pid: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "comments.pid"), []byte("999999999\n"), 0o600); err != nil {
		t.Fatalf("write dead pid: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "scraper.stdout.log"), []byte("hello\n"), 0o600); err != nil {
		t.Fatalf("write log: %v", err)
	}

	snap := r.Report()
	if !snap.Active {
		t.Fatalf("expected active")
	}
	if snap.PID != os.Getpid() {
		t.Fatalf("pid = %d, want %d", snap.PID, os.Getpid())
	}
	if pid, ok := snap.Children["scraper"]; !ok || pid != os.Getpid() {
		t.Fatalf("live child missing from tree: %+v", snap.Children)
	}
	if _, ok := snap.Children["comments"]; ok {
		t.Fatalf("dead child must not appear in tree")
	}
	if size, ok := snap.LogSizes["scraper.stdout.log"]; !ok || size != 6 {
		t.Fatalf("log sizes = %+v", snap.LogSizes)
	}
}

func TestReportPurgesStaleMarker(t *testing.T) {
	r, dir := newTestReporter(t)
	marker := filepath.Join(dir, config.MarkerName)
	if err := os.WriteFile(marker, []byte("999999999\n"), 0o600); err != nil {
		t.Fatalf("write stale marker: %v", err)
	}
	snap := r.Report()
	if snap.Active {
		t.Fatalf("stale marker must report inactive")
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Fatalf("stale marker should have been purged")
	}
}
