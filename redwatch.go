package redwatch

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/redwatch/redwatch/internal/config"
	"github.com/redwatch/redwatch/internal/history"
	"github.com/redwatch/redwatch/internal/history/factory"
	"github.com/redwatch/redwatch/internal/metrics"
	iapi "github.com/redwatch/redwatch/internal/server"
	"github.com/redwatch/redwatch/internal/status"
	"github.com/redwatch/redwatch/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = cfg.Config

type Snapshot = status.Snapshot

type HistoryEvent = history.Event

type HistorySink = history.Sink

// Supervisor is a thin facade over internal/supervisor.Supervisor.
// It provides a stable public API for embedding.
type Supervisor struct{ inner *supervisor.Supervisor }

// New builds a Supervisor from config. sink may be nil to disable
// history recording.
func New(c *Config, sink HistorySink) *Supervisor {
	return &Supervisor{inner: supervisor.New(c, sink)}
}

// Run supervises until ctx is canceled.
func (s *Supervisor) Run(ctx context.Context) error { return s.inner.Run(ctx) }

// ForceTrigger requests a comment refresh on the next tick.
func (s *Supervisor) ForceTrigger() { s.inner.ForceTrigger() }

// Stop asks an already-running instance (this process or another) to
// shut down via its marker file.
func Stop(markerPath string, wait time.Duration) (bool, error) {
	return supervisor.StopRunning(markerPath, wait)
}

// Status reports on the instance described by c.
func Status(c *Config) Snapshot { return status.NewReporter(c).Report() }

func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

func DefaultConfig(path string) *Config { return cfg.Default(path) }

// NewHistorySink builds a lifecycle event sink from a DSN
// (sqlite path, postgres:// or clickhouse://).
func NewHistorySink(dsn string) (HistorySink, error) { return factory.NewSinkFromDSN(dsn) }

// NewHTTPServer starts the status HTTP API for a running supervisor.
func NewHTTPServer(addr, basePath string, c *Config, s *Supervisor) *http.Server {
	var trig iapi.Triggerer
	if s != nil {
		trig = s.inner
	}
	return iapi.NewServer(addr, basePath, status.NewReporter(c), trig)
}

// StatusHandler returns the status API as an http.Handler for mounting
// in an existing server or mux.
func StatusHandler(basePath string, c *Config, s *Supervisor) http.Handler {
	var trig iapi.Triggerer
	if s != nil {
		trig = s.inner
	}
	return iapi.NewRouter(status.NewReporter(c), trig, basePath).Handler()
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics serves /metrics on addr in the caller goroutine.
func ServeMetrics(addr string) error { return metrics.Serve(addr) }
