package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// Mask replaces sensitive attribute values.
const Mask = "***REDACTED***"

var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"secret":        {},
	"secret_key":    {},
	"token":         {},
	"access_token":  {},
	"refresh_token": {},
	"authorization": {},
	"verifier":      {},
	"master_key":    {},
}

var jwtPattern = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)

// RedactingHandler wraps an slog.Handler and masks credentials before they
// reach the output, whether they come in by key name or look like a JWT.
type RedactingHandler struct {
	next slog.Handler
}

func NewRedactingHandler(next slog.Handler) *RedactingHandler {
	return &RedactingHandler{next: next}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redact(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = redact(a)
	}
	return &RedactingHandler{next: h.next.WithAttrs(clean)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name)}
}

func redact(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		clean := make([]slog.Attr, len(group))
		for i, ga := range group {
			clean[i] = redact(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}

	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, Mask)
	}

	if a.Value.Kind() == slog.KindString && jwtPattern.MatchString(a.Value.String()) {
		return slog.String(a.Key, Mask)
	}

	return a
}
