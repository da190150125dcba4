package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ErrConfigNotFound is the startup gate: the shared config file must exist.
var ErrConfigNotFound = errors.New("config file not found")

// Defaults for supervisor settings not present in the config file.
const (
	DefaultInterval     = 60 * time.Minute
	DefaultCommentLimit = 10000
	DefaultLogDir       = "./logs"
	DefaultIdleInterval = 30 * time.Second
	DefaultWaitCeiling  = time.Hour
	DefaultWaitPoll     = 5 * time.Second
	DefaultStopGrace    = 10 * time.Second

	DefaultScraperCommand  = "python3 reddit_image_downloader.py"
	DefaultCommentsCommand = "python3 update_comments_batch.py"

	DefaultConfigPath = "config.ini"

	MarkerName = "redwatch.pid"
)

// Config holds all supervisor settings. Immutable once the supervisor loop
// starts; the external tools read the same INI file for their own keys.
type Config struct {
	ConfigPath string // shared INI consumed by scraper and comment updater

	Interval     time.Duration // comment refresh cadence
	CommentLimit int           // --limit passed to the comment updater
	LogDir       string        // child stdout/stderr logs
	PIDDir       string        // marker + per-child pid files (defaults to LogDir)

	ScraperCommand  string   // base command; --continuous --config appended
	CommentsCommand string   // base command; --limit --config appended
	WorkDir         string   // working directory for both children
	ChildEnv        []string // extra KEY=VALUE entries for both children

	IdleInterval time.Duration // main loop sleep per tick
	WaitCeiling  time.Duration // bounded wait for comment runs
	WaitPoll     time.Duration // poll interval inside the bounded wait
	StopGrace    time.Duration // SIGTERM grace before SIGKILL

	HistoryDSN    string // lifecycle event sink; empty disables
	MetricsListen string // prometheus /metrics address; empty disables
	HTTPListen    string // status HTTP API address; empty disables
}

// Default returns a Config with all defaults applied for the given
// config file path.
func Default(path string) *Config {
	return &Config{
		ConfigPath:      path,
		Interval:        DefaultInterval,
		CommentLimit:    DefaultCommentLimit,
		LogDir:          DefaultLogDir,
		ScraperCommand:  DefaultScraperCommand,
		CommentsCommand: DefaultCommentsCommand,
		IdleInterval:    DefaultIdleInterval,
		WaitCeiling:     DefaultWaitCeiling,
		WaitPoll:        DefaultWaitPoll,
		StopGrace:       DefaultStopGrace,
	}
}

// Load verifies that the shared config file exists and reads the optional
// [supervisor] section for overrides. The file mostly belongs to the
// external tools; sections with bare-line entries (scrape lists) can make
// the INI unparseable, in which case the supervisor falls back to defaults
// rather than failing. Existence is the only hard gate.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	c := Default(path)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		slog.Debug("config not parseable as INI, using supervisor defaults", "path", path, "error", err)
		c.normalize()
		return c, nil
	}

	if m := v.GetInt("supervisor.comment_interval_minutes"); m > 0 {
		c.Interval = time.Duration(m) * time.Minute
	}
	if n := v.GetInt("supervisor.comment_limit"); n > 0 {
		c.CommentLimit = n
	}
	if s := v.GetString("supervisor.log_dir"); s != "" {
		c.LogDir = s
	}
	if s := v.GetString("supervisor.pid_dir"); s != "" {
		c.PIDDir = s
	}
	if s := v.GetString("supervisor.scraper_command"); s != "" {
		c.ScraperCommand = s
	}
	if s := v.GetString("supervisor.comments_command"); s != "" {
		c.CommentsCommand = s
	}
	if s := v.GetString("supervisor.work_dir"); s != "" {
		c.WorkDir = s
	}
	c.ChildEnv = v.GetStringSlice("supervisor.child_env")
	if d := v.GetDuration("supervisor.idle_interval"); d > 0 {
		c.IdleInterval = d
	}
	if d := v.GetDuration("supervisor.wait_ceiling"); d > 0 {
		c.WaitCeiling = d
	}
	if d := v.GetDuration("supervisor.wait_poll"); d > 0 {
		c.WaitPoll = d
	}
	if d := v.GetDuration("supervisor.stop_grace"); d > 0 {
		c.StopGrace = d
	}
	c.HistoryDSN = v.GetString("supervisor.history_dsn")
	c.MetricsListen = v.GetString("supervisor.metrics_listen")
	c.HTTPListen = v.GetString("supervisor.http_listen")

	c.normalize()
	return c, nil
}

func (c *Config) normalize() {
	if c.PIDDir == "" {
		c.PIDDir = c.LogDir
	}
}

// MarkerPath returns the instance marker location.
func (c *Config) MarkerPath() string {
	return filepath.Join(c.PIDDir, MarkerName)
}
