package common

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyRunID     contextKey = "run_id"
	ContextKeyFamily    contextKey = "family"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithRunID adds the optimization run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithFamily adds the document family to the context
func WithFamily(ctx context.Context, family string) context.Context {
	return context.WithValue(ctx, ContextKeyFamily, family)
}

// FamilyFromContext extracts the document family from context
func FamilyFromContext(ctx context.Context) string {
	if family, ok := ctx.Value(ContextKeyFamily).(string); ok {
		return family
	}
	return ""
}

// NewRunContext tags ctx with a fresh run ID for family and returns both.
func NewRunContext(ctx context.Context, family string) (context.Context, string) {
	runID := uuid.NewString()
	return WithFamily(WithRunID(ctx, runID), family), runID
}

// WithTimeout creates a context with the specified timeout. A non-positive
// timeout returns a cancelable child without a deadline.
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
