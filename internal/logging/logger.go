// Package logging defines the structured-logging interface used across
// foodie together with its slog-backed implementation.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key/value pairs, e.g.:
//
//	log.Info(ctx, "scan finished", "status", status, "user_id", userID)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn is used for degraded but non-fatal conditions, such as a failed
	// remote write or an undecodable image.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key/value pairs.
	With(args ...any) Logger
}
