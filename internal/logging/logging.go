// Package logging sets up the process wide slog logger.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrInvalidLevel is returned when a log level can't be parsed.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel converts a configuration value to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, ErrInvalidLevel
	}
}

// Options controls the logger construction.
type Options struct {
	Level string

	// File is the rotated debug log, empty to disable.
	File string

	// Console receives a copy of every record, usually os.Stdout.
	Console io.Writer

	// Handlers receive every record on top of the text output, e.g. a terminal UI.
	Handlers []slog.Handler
}

// Setup builds a text logger writing to the console and the rotated log file, and installs
// it as the slog default. The returned closer releases the log file.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	writers := []io.Writer{}
	if opts.Console != nil {
		writers = append(writers, opts.Console)
	}

	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		fileLogger := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    5,
			MaxBackups: 10,
			MaxAge:     30,
			Compress:   true,
		}

		closer = fileLogger
		writers = append(writers, fileLogger)
	}

	var handler slog.Handler = slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: level})

	if len(opts.Handlers) > 0 {
		handler = fanout(append([]slog.Handler{handler}, opts.Handlers...))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error {
	return nil
}

// fanout passes records on to every handler enabled for their level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var errs error

	for _, h := range f {
		if !h.Enabled(ctx, record.Level) {
			continue
		}

		err := h.Handle(ctx, record.Clone())
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	return errs
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	ret := make(fanout, 0, len(f))
	for _, h := range f {
		ret = append(ret, h.WithAttrs(attrs))
	}

	return ret
}

func (f fanout) WithGroup(name string) slog.Handler {
	ret := make(fanout, 0, len(f))
	for _, h := range f {
		ret = append(ret, h.WithGroup(name))
	}

	return ret
}
