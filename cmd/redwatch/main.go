package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/redwatch/redwatch/internal/config"
	"github.com/redwatch/redwatch/internal/history"
	"github.com/redwatch/redwatch/internal/history/factory"
	"github.com/redwatch/redwatch/internal/logger"
	"github.com/redwatch/redwatch/internal/metrics"
	"github.com/redwatch/redwatch/internal/server"
	"github.com/redwatch/redwatch/internal/status"
	"github.com/redwatch/redwatch/internal/supervisor"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errNotRunning) {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// Flags holds the command-line surface. Interval is expressed in minutes
// to match the operational habit of tuning the comment cadence by hand.
type Flags struct {
	CommentInterval int
	CommentLimit    int
	ConfigPath      string
	LogDir          string
	Stop            bool
	Status          bool
}

func buildRoot() *cobra.Command {
	flags := &Flags{}
	root := &cobra.Command{
		Use:   "redwatch",
		Short: "Supervisor for the reddit scraper and its comment updater",
		Long: `Redwatch keeps a continuous scraper process alive, restarts it when it
dies, and launches a bounded comment-refresh run on a fixed cadence.
Only one instance runs at a time per log directory.

Examples:
  redwatch                          # supervise with config.ini defaults
  redwatch --comment-interval=30    # refresh comments every 30 minutes
  redwatch --status                 # report the running instance
  redwatch --stop                   # ask the running instance to shut down`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, flags)
		},
	}

	root.Flags().IntVar(&flags.CommentInterval, "comment-interval", int(config.DefaultInterval/time.Minute),
		"minutes between comment refresh runs")
	root.Flags().IntVar(&flags.CommentLimit, "comment-limit", config.DefaultCommentLimit,
		"max comments per refresh run")
	root.Flags().StringVar(&flags.ConfigPath, "config", config.DefaultConfigPath, "path to config file")
	root.Flags().StringVar(&flags.LogDir, "log-dir", config.DefaultLogDir, "directory for child logs and pid files")
	root.Flags().BoolVar(&flags.Stop, "stop", false, "stop the running instance and exit")
	root.Flags().BoolVar(&flags.Status, "status", false, "report whether an instance is running and exit")
	return root
}

func run(cmd *cobra.Command, flags *Flags) error {
	logger.Setup(slog.LevelInfo)

	// Stop and status work against whatever instance may be running, so a
	// missing config file falls back to defaults instead of failing.
	if flags.Stop || flags.Status {
		cfg, err := config.Load(flags.ConfigPath)
		if errors.Is(err, config.ErrConfigNotFound) {
			cfg, err = config.Default(flags.ConfigPath), nil
		}
		if err != nil {
			return err
		}
		applyOverrides(cmd, flags, cfg)
		if flags.Stop {
			_, _ = supervisor.StopRunning(cfg.MarkerPath(), cfg.StopGrace)
			return nil
		}
		return reportStatus(cmd, cfg)
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	applyOverrides(cmd, flags, cfg)

	sink, err := openSink(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}
	if cfg.MetricsListen != "" {
		go func() { _ = metrics.Serve(cfg.MetricsListen) }()
	}

	sup := supervisor.New(cfg, sink)

	var api interface{ Close() error }
	if cfg.HTTPListen != "" {
		api = server.NewServer(cfg.HTTPListen, "", status.NewReporter(cfg), sup)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = sup.Run(ctx)
	if api != nil {
		_ = api.Close()
	}
	return err
}

// applyOverrides layers explicitly set flags on top of the loaded config.
func applyOverrides(cmd *cobra.Command, flags *Flags, cfg *config.Config) {
	if cmd.Flags().Changed("comment-interval") {
		cfg.Interval = time.Duration(flags.CommentInterval) * time.Minute
	}
	if cmd.Flags().Changed("comment-limit") {
		cfg.CommentLimit = flags.CommentLimit
	}
	if cmd.Flags().Changed("log-dir") {
		cfg.LogDir = flags.LogDir
		cfg.PIDDir = flags.LogDir
	}
}

// reportStatus prints the snapshot and exits non-zero when nothing runs.
func reportStatus(cmd *cobra.Command, cfg *config.Config) error {
	snap := status.NewReporter(cfg).Report()
	out := cmd.OutOrStdout()
	if snap.Active {
		_, _ = fmt.Fprintf(out, "active (pid %d)\n", snap.PID)
		for name, pid := range snap.Children {
			_, _ = fmt.Fprintf(out, "  %s: pid %d\n", name, pid)
		}
	} else {
		_, _ = fmt.Fprintln(out, "not running")
	}
	for name, size := range snap.LogSizes {
		_, _ = fmt.Fprintf(out, "  %s: %d bytes\n", name, size)
	}
	if !snap.Active {
		// Exit code carries the answer for scripts.
		return errNotRunning
	}
	return nil
}

var errNotRunning = errors.New("not running")

// openSink builds the history sink from the configured DSN. No DSN means
// history recording is off.
func openSink(cfg *config.Config) (history.Sink, error) {
	if cfg.HistoryDSN == "" {
		return history.Nop{}, nil
	}
	sink, err := factory.NewSinkFromDSN(cfg.HistoryDSN)
	if err != nil {
		return nil, fmt.Errorf("history dsn: %w", err)
	}
	return sink, nil
}
