package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pixil98/go-errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level  string      `json:"level"`
	Format string      `json:"format"`
	File   *FileConfig `json:"file,omitempty"`
}

// FileConfig sends logs to a rolling file instead of stderr.
type FileConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.Level != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
			el.Add(fmt.Errorf("parsing log level: %w", err))
		}
	}

	switch c.Format {
	case "", "text", "json":
	default:
		el.Add(fmt.Errorf("unknown log format: %s", c.Format))
	}

	if c.File != nil {
		if c.File.Path == "" {
			el.Add(fmt.Errorf("log file path is required"))
		}
		if c.File.MaxSizeMB < 0 || c.File.MaxBackups < 0 || c.File.MaxAgeDays < 0 {
			el.Add(fmt.Errorf("log file rotation limits must not be negative"))
		}
	}

	return el.Err()
}

func (c *Config) level() slog.Level {
	var lvl slog.Level
	if c.Level != "" {
		_ = lvl.UnmarshalText([]byte(c.Level))
	}
	return lvl
}

func (c *Config) writer() io.Writer {
	if c.File == nil {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   c.File.Path,
		MaxSize:    c.File.MaxSizeMB,
		MaxBackups: c.File.MaxBackups,
		MaxAge:     c.File.MaxAgeDays,
		Compress:   c.File.Compress,
	}
}

// NewLogger returns a logger writing to w in the configured format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.level()}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Install makes the configured logger the process default.
func (c *Config) Install() {
	slog.SetDefault(c.NewLogger(c.writer()))
}
