package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors, registered via Register.
var (
	regOK atomic.Bool

	scraperRestarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "redwatch",
			Subsystem: "scraper",
			Name:      "restarts_total",
			Help:      "Number of times the scraper process died and was restarted.",
		},
	)
	commentTriggers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "redwatch",
			Subsystem: "comments",
			Name:      "triggers_total",
			Help:      "Number of comment refresh runs triggered by the cadence scheduler.",
		},
	)
	commentOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "redwatch",
			Subsystem: "comments",
			Name:      "outcomes_total",
			Help:      "Comment refresh outcomes by result (completed, timed_out, canceled).",
		}, []string{"result"},
	)
	commentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "redwatch",
			Subsystem: "comments",
			Name:      "wait_duration_seconds",
			Help:      "Observed bounded-wait duration for comment refresh runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
	supervisorState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "redwatch",
			Subsystem: "supervisor",
			Name:      "state",
			Help:      "Current supervisor state (1 = active state, 0 = inactive).",
		}, []string{"state"},
	)
	supervisorTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "redwatch",
			Subsystem: "supervisor",
			Name:      "ticks_total",
			Help:      "Number of main loop iterations.",
		},
	)
)

// Register registers all collectors with the provided registerer.
// Safe to call multiple times; calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{scraperRestarts, commentTriggers, commentOutcomes, commentDuration, supervisorState, supervisorTicks}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving the default gatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Serve starts a blocking HTTP server on addr exposing /metrics.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}

// Helpers below no-op until Register has been called.

func IncScraperRestart() {
	if regOK.Load() {
		scraperRestarts.Inc()
	}
}

func IncCommentTrigger() {
	if regOK.Load() {
		commentTriggers.Inc()
	}
}

func IncCommentOutcome(result string) {
	if regOK.Load() {
		commentOutcomes.WithLabelValues(result).Inc()
	}
}

func ObserveCommentWait(seconds float64) {
	if regOK.Load() {
		commentDuration.Observe(seconds)
	}
}

func SetSupervisorState(state string, active bool) {
	if regOK.Load() {
		var v float64
		if active {
			v = 1
		}
		supervisorState.WithLabelValues(state).Set(v)
	}
}

func IncTick() {
	if regOK.Load() {
		supervisorTicks.Inc()
	}
}
