package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redwatch/redwatch/internal/config"
	"github.com/redwatch/redwatch/internal/guard"
	"github.com/redwatch/redwatch/internal/status"
)

type fakeTrigger struct{ fired bool }

func (f *fakeTrigger) ForceTrigger() { f.fired = true }

func setupRouter(t *testing.T, base string, trig Triggerer) (http.Handler, *status.Reporter) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	reporter := &status.Reporter{
		Guard:  guard.New(filepath.Join(dir, config.MarkerName)),
		PIDDir: dir,
		LogDir: dir,
	}
	return NewRouter(reporter, trig, base).Handler(), reporter
}

func doReq(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatusInactive(t *testing.T) {
	h, _ := setupRouter(t, "/api", nil)
	rec := doReq(t, h, http.MethodGet, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap status.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if snap.Active {
		t.Fatalf("expected inactive snapshot")
	}
}

func TestStatusActiveWithLogs(t *testing.T) {
	h, reporter := setupRouter(t, "", nil)
	if err := reporter.Guard.Acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := os.WriteFile(filepath.Join(reporter.LogDir, "scraper.stdout.log"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write log: %v", err)
	}
	rec := doReq(t, h, http.MethodGet, "/status")
	var snap status.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if !snap.Active || snap.PID != os.Getpid() {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.LogSizes["scraper.stdout.log"] != 1 {
		t.Fatalf("log sizes = %+v", snap.LogSizes)
	}
}

func TestHealthzReflectsActive(t *testing.T) {
	h, reporter := setupRouter(t, "", nil)
	if rec := doReq(t, h, http.MethodGet, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when inactive, got %d", rec.Code)
	}
	if err := reporter.Guard.Acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if rec := doReq(t, h, http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when active, got %d", rec.Code)
	}
}

func TestTriggerFiresAndRequiresTriggerer(t *testing.T) {
	trig := &fakeTrigger{}
	h, _ := setupRouter(t, "/api", trig)
	rec := doReq(t, h, http.MethodPost, "/api/trigger")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if !trig.fired {
		t.Fatalf("trigger did not reach the supervisor")
	}

	h2, _ := setupRouter(t, "", nil)
	if rec := doReq(t, h2, http.MethodPost, "/trigger"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a triggerer, got %d", rec.Code)
	}
}

func TestSanitizeBase(t *testing.T) {
	cases := map[string]string{
		"":      "",
		"/":     "",
		"api":   "/api",
		"/api/": "/api",
	}
	for in, want := range cases {
		if got := sanitizeBase(in); got != want {
			t.Fatalf("sanitizeBase(%q) = %q, want %q", in, got, want)
		}
	}
}
