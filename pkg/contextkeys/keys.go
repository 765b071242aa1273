// Package contextkeys provides centralized context key definitions.
//
// All context keys used across the application must be defined here. This
// prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey contains *identity.Principal
	// Set by: api.PrincipalMiddleware (pkg/api/middleware.go)
	// Required by: every handler that evaluates visibility
	// Type: *identity.Principal
	PrincipalKey Key = "principal"

	// RequestIDKey contains request ID string (UUID)
	// Set by: HTTP middleware, observability layer
	// Used by: Logger, distributed tracing
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains user ID string
	// Set by: PrincipalMiddleware after session resolution
	// Used by: Logger, user-scoped operations
	// Type: string
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	// Set by: Observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// WithPrincipal adds the resolved principal to the context
func WithPrincipal(ctx context.Context, principal interface{}) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
