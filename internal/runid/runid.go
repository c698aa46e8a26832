// Package runid provides run ID generation and context utilities for
// correlating logs and audit events from a single invocation.
package runid

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"regexp"
	"time"

	"go.uber.org/zap"
)

// contextKey is an unexported type for context keys to prevent collisions
type contextKey int

const (
	runIDKey contextKey = iota
	loggerKey
)

// validIDRegex validates run ID format: 24 hex characters
var validIDRegex = regexp.MustCompile(`^[0-9a-f]{24}$`)

// Generate creates a new time-sortable run ID.
// Format: 24 hex characters (8 bytes timestamp + 4 bytes random)
// The timestamp prefix keeps audit events sortable across runs.
func Generate() string {
	id := make([]byte, 12)
	binary.BigEndian.PutUint64(id[:8], uint64(time.Now().UnixMilli()))
	_, _ = rand.Read(id[8:])
	return hex.EncodeToString(id)
}

// IsValid checks if a string is a valid run ID format.
// Valid IDs are 24 lowercase hex characters.
func IsValid(id string) bool {
	return validIDRegex.MatchString(id)
}

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// FromContext retrieves the run ID from context.
// Returns empty string if no run ID is present.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}

// WithLogger adds a run-scoped logger to the context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves the run-scoped logger from context.
// Returns the fallback logger if no run logger is present.
func LoggerFromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return fallback
}

// NewContext creates a new context with a run ID and scoped logger.
// Call this once at the start of an invocation; everything downstream
// pulls the ID and logger back out of the context.
func NewContext(ctx context.Context, baseLogger *zap.Logger) context.Context {
	return NewContextWithID(ctx, Generate(), baseLogger)
}

// NewContextWithID creates a context with an existing run ID and scoped
// logger. Use this when a wrapper supplies the ID so that several
// invocations share one audit trail.
func NewContextWithID(ctx context.Context, id string, baseLogger *zap.Logger) context.Context {
	ctx = WithRunID(ctx, id)
	scopedLogger := baseLogger.With(zap.String("runID", id))
	return WithLogger(ctx, scopedLogger)
}
