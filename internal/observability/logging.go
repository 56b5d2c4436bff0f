package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions configures the process logger.
type LogOptions struct {
	Level  string
	Format string
	// File, when set, receives a copy of every record through a rotating writer.
	File string
}

// NewLogger creates the structured logger and sets it as the slog default.
// Level and format are interpreted by the shared logger; the file copy is
// always JSON and keeps exactly the records the shared logger accepts.
// The returned closer releases the log file and is a no-op without one.
func NewLogger(opts LogOptions) (*slog.Logger, io.Closer) {
	logger := sharedobs.NewLogger(opts.Level, opts.Format)
	if opts.File == "" {
		return logger, nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    64, // MB
		MaxBackups: 3,
		Compress:   true,
	}
	logger = slog.New(teeHandler{
		primary: logger.Handler(),
		copy:    slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
	slog.SetDefault(logger)
	return logger, file
}

// teeHandler passes every record the primary handler accepts to a second
// handler as well.
type teeHandler struct {
	primary slog.Handler
	copy    slog.Handler
}

func (h teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level)
}

func (h teeHandler) Handle(ctx context.Context, r slog.Record) error {
	return errors.Join(h.primary.Handle(ctx, r.Clone()), h.copy.Handle(ctx, r))
}

func (h teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{primary: h.primary.WithAttrs(attrs), copy: h.copy.WithAttrs(attrs)}
}

func (h teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{primary: h.primary.WithGroup(name), copy: h.copy.WithGroup(name)}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
