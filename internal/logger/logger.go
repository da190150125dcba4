package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters for child process logs.
const (
	DefaultMaxSizeMB  = 50 // MB
	DefaultMaxBackups = 5  // number of backup files
	DefaultMaxAgeDays = 14 // days
)

// Config describes log destinations for a supervised child process.
// Stdout and stderr are appended to Dir/<name>.stdout.log and
// Dir/<name>.stderr.log with lumberjack rotation.
type Config struct {
	Dir        string // base directory for child logs
	MaxSizeMB  int    // megabytes before rotation (default 50)
	MaxBackups int    // number of backups to keep (default 5)
	MaxAgeDays int    // days to keep (default 14)
	Compress   bool   // gzip rotated files
}

// StdoutPath returns the derived stdout log path for name.
func (c Config) StdoutPath(name string) string {
	return filepath.Join(c.Dir, fmt.Sprintf("%s.stdout.log", name))
}

// StderrPath returns the derived stderr log path for name.
func (c Config) StderrPath(name string) string {
	return filepath.Join(c.Dir, fmt.Sprintf("%s.stderr.log", name))
}

// Writers returns rotating io.WriteClosers for the stdout and stderr of the
// named child. The log directory is created if absent.
func (c Config) Writers(name string) (io.WriteCloser, io.WriteCloser, error) {
	if c.Dir == "" {
		return nil, nil, fmt.Errorf("log dir not configured")
	}
	if err := os.MkdirAll(c.Dir, 0o750); err != nil {
		return nil, nil, fmt.Errorf("create log dir %s: %w", c.Dir, err)
	}
	outW := &lj.Logger{
		Filename:   c.StdoutPath(name),
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
	errW := &lj.Logger{
		Filename:   c.StderrPath(name),
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
	return outW, errW, nil
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Setup installs a colored slog text handler on stderr as the default
// logger. Every supervisor state transition goes through this.
func Setup(level slog.Level) {
	h := NewColorTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
}
