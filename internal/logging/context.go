package logging

import (
	"context"

	"go.uber.org/zap"
)

type contextKey int

const (
	sessionIDKey contextKey = iota
	stageKey
)

// WithSession returns a context carrying the pipeline session ID.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithStage returns a context carrying the current pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// SessionFromContext returns the session ID carried by ctx, if any.
func SessionFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok
}

// ContextFields extracts zap fields from context values set by WithSession
// and WithStage. Missing values produce no fields.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if id, ok := ctx.Value(sessionIDKey).(string); ok && id != "" {
		fields = append(fields, zap.String("session_id", id))
	}
	if stage, ok := ctx.Value(stageKey).(string); ok && stage != "" {
		fields = append(fields, zap.String("stage", stage))
	}
	return fields
}
