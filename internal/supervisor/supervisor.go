package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redwatch/redwatch/internal/config"
	"github.com/redwatch/redwatch/internal/guard"
	"github.com/redwatch/redwatch/internal/history"
	"github.com/redwatch/redwatch/internal/logger"
	"github.com/redwatch/redwatch/internal/metrics"
	"github.com/redwatch/redwatch/internal/monitor"
	"github.com/redwatch/redwatch/internal/schedule"
)

// State is the supervisor lifecycle state.
type State int32

const (
	StateRunning State = iota
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Supervisor owns the instance marker, the primary scraper handle, the
// cadence clock, and a reference to an in-flight comment run. All child
// state is touched only by the Run goroutine; the only cross-goroutine
// inputs are context cancellation and the force-trigger flag.
type Supervisor struct {
	cfg   *config.Config
	guard *guard.Guard
	clock *schedule.Clock
	sink  history.Sink

	primary   *monitor.Child
	secondary *monitor.Child

	state        atomic.Int32
	forceTrigger atomic.Bool
}

// New builds a Supervisor. A nil sink disables history recording.
func New(cfg *config.Config, sink history.Sink) *Supervisor {
	if sink == nil {
		sink = history.Nop{}
	}
	return &Supervisor{
		cfg:   cfg,
		guard: guard.New(cfg.MarkerPath()),
		sink:  sink,
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State { return State(s.state.Load()) }

// ForceTrigger requests a comment refresh on the next tick regardless of
// the cadence. Safe to call from other goroutines (the HTTP API does).
func (s *Supervisor) ForceTrigger() { s.forceTrigger.Store(true) }

func (s *Supervisor) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	metrics.SetSupervisorState(prev.String(), false)
	metrics.SetSupervisorState(st.String(), true)
}

func (s *Supervisor) scraperSpec() monitor.Spec {
	return monitor.Spec{
		Name:    "scraper",
		Command: fmt.Sprintf("%s --continuous --config %s", s.cfg.ScraperCommand, s.cfg.ConfigPath),
		WorkDir: s.cfg.WorkDir,
		Env:     s.cfg.ChildEnv,
		PIDDir:  s.cfg.PIDDir,
		Log:     logger.Config{Dir: s.cfg.LogDir},
	}
}

func (s *Supervisor) commentsSpec() monitor.Spec {
	return monitor.Spec{
		Name:    "comments",
		Command: fmt.Sprintf("%s --limit %d --config %s", s.cfg.CommentsCommand, s.cfg.CommentLimit, s.cfg.ConfigPath),
		WorkDir: s.cfg.WorkDir,
		Env:     s.cfg.ChildEnv,
		PIDDir:  s.cfg.PIDDir,
		Log:     logger.Config{Dir: s.cfg.LogDir},
	}
}

func (s *Supervisor) record(t history.EventType, task string, pid int, detail string) {
	e := history.Event{Type: t, OccurredAt: time.Now(), Task: task, PID: pid, Detail: detail}
	if err := s.sink.Send(context.Background(), e); err != nil {
		slog.Warn("history sink rejected event", "event", string(t), "error", err)
	}
}

// Run acquires the instance marker, starts the primary scraper, and drives
// the main loop until ctx is canceled. Startup failures are returned;
// steady-state failures (child death, comment timeouts) are handled inside
// the loop and never escape.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.guard.Acquire(); err != nil {
		return err
	}
	defer s.guard.Release()

	s.record(history.EventSupervisorStart, "supervisor", 0, "")

	primary, err := monitor.Start(s.scraperSpec())
	if err != nil {
		// Initial spawn failure is fatal: nothing to supervise.
		return err
	}
	s.primary = primary
	s.setState(StateRunning)
	slog.Info("scraper started", "pid", primary.PID(), "interval", s.cfg.Interval)
	s.record(history.EventScraperStart, "scraper", primary.PID(), "")

	s.clock = schedule.NewClock(time.Now())

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		default:
		}

		metrics.IncTick()
		s.ensurePrimary()

		now := time.Now()
		if s.clock.DueAt(now, s.cfg.Interval) || s.forceTrigger.Swap(false) {
			// Mark before the run so its duration never shifts the cadence.
			s.clock.MarkTriggered(now)
			s.runCommentRefresh(ctx)
		}

		if !sleepCtx(ctx, s.cfg.IdleInterval) {
			s.shutdown()
			return nil
		}
	}
}

// ensurePrimary restarts the scraper when it is found dead. Every exit is
// abnormal for a continuous scraper, so the restart is immediate and
// unconditional; a respawn failure is retried on the next tick instead of
// taking the supervisor down.
func (s *Supervisor) ensurePrimary() {
	if s.primary != nil && s.primary.Alive() {
		return
	}
	if s.primary != nil {
		slog.Error("scraper died unexpectedly", "pid", s.primary.PID(), "exit", errString(s.primary.ExitErr()))
	}
	child, err := monitor.Start(s.scraperSpec())
	if err != nil {
		slog.Error("scraper respawn failed, will retry next tick", "error", err)
		s.primary = nil
		return
	}
	if s.primary != nil {
		metrics.IncScraperRestart()
		s.record(history.EventScraperRestart, "scraper", child.PID(), errString(s.primary.ExitErr()))
		slog.Info("scraper restarted", "pid", child.PID())
	} else {
		s.record(history.EventScraperStart, "scraper", child.PID(), "")
		slog.Info("scraper started", "pid", child.PID())
	}
	s.primary = child
}

// runCommentRefresh spawns the comment updater and waits for it up to the
// ceiling. On timeout the run is abandoned, not killed; on a pending
// shutdown the handle stays referenced so shutdown can terminate it.
func (s *Supervisor) runCommentRefresh(ctx context.Context) {
	child, err := monitor.Start(s.commentsSpec())
	if err != nil {
		slog.Error("comment refresh spawn failed", "error", err)
		return
	}
	s.secondary = child
	metrics.IncCommentTrigger()
	s.record(history.EventCommentTrigger, "comments", child.PID(), fmt.Sprintf("limit %d", s.cfg.CommentLimit))
	slog.Info("comment refresh triggered", "pid", child.PID(), "limit", s.cfg.CommentLimit)

	started := time.Now()
	res := monitor.WaitBounded(ctx, child, s.cfg.WaitCeiling, s.cfg.WaitPoll)
	metrics.ObserveCommentWait(time.Since(started).Seconds())
	metrics.IncCommentOutcome(res.String())

	switch res {
	case monitor.WaitCompleted:
		slog.Info("comment refresh completed", "pid", child.PID(), "took", time.Since(started).Round(time.Second))
		s.record(history.EventCommentComplete, "comments", child.PID(), "")
		s.secondary = nil
	case monitor.WaitTimedOut:
		slog.Warn("comment refresh still running past ceiling, abandoning wait",
			"pid", child.PID(), "ceiling", s.cfg.WaitCeiling)
		s.record(history.EventCommentTimeout, "comments", child.PID(), fmt.Sprintf("ceiling %s", s.cfg.WaitCeiling))
		s.secondary = nil
	case monitor.WaitCanceled:
		// Shutdown pending; keep the reference so shutdown stops it.
	}
}

// shutdown drives Running -> ShuttingDown -> Stopped: terminate the
// primary, terminate a still-referenced secondary, release the marker.
func (s *Supervisor) shutdown() {
	s.setState(StateShuttingDown)
	slog.Info("shutting down")

	if s.secondary != nil && s.secondary.Alive() {
		slog.Info("stopping comment refresh", "pid", s.secondary.PID())
		_ = s.secondary.Stop(s.cfg.StopGrace)
	}
	s.secondary = nil

	if s.primary != nil && s.primary.Alive() {
		slog.Info("stopping scraper", "pid", s.primary.PID())
		_ = s.primary.Stop(s.cfg.StopGrace)
	}
	s.primary = nil

	s.guard.Release()
	s.record(history.EventSupervisorStop, "supervisor", 0, "")
	s.setState(StateStopped)
	slog.Info("stopped")
}

// sleepCtx sleeps for d or until ctx is canceled. Returns false when the
// sleep was interrupted by cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
