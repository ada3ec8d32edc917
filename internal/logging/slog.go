package logging

import (
	"context"
	"io"
	"log/slog"
)

type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

// NewText builds a redacting text logger, used by the interactive client.
func NewText(w io.Writer, level slog.Level) *SlogLogger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return NewSlogLogger(slog.New(NewRedactingHandler(h)))
}

// NewJSON builds a redacting JSON logger tagged with the service name.
func NewJSON(w io.Writer, service string, level slog.Level) *SlogLogger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return NewSlogLogger(slog.New(NewRedactingHandler(h)).With("service", service))
}

// ParseLevel understands debug, info, warn and error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}
