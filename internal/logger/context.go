package logger

import (
	"context"

	"go.uber.org/zap"
)

type requestIDKey struct{}

// WithRequestID returns a copy of ctx carrying the request id.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, reqID)
}

// RequestID returns the request id stored in ctx, or "" when there is none.
func RequestID(ctx context.Context) string {
	reqID, _ := ctx.Value(requestIDKey{}).(string)
	return reqID
}

// FromContext returns the global logger annotated with the request id from
// ctx, if any.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if reqID := RequestID(ctx); reqID != "" {
		return Log.With("request_id", reqID)
	}
	return Log
}
