// Package contextkeys provides centralized context key definitions
//
// All context keys used across the console are defined here so that a key
// set in one package and read in another cannot drift apart.
//
// USAGE PATTERN:
//
//	ctx = context.WithValue(ctx, contextkeys.SessionServiceKey, svc)
//	svc, _ := ctx.Value(contextkeys.SessionServiceKey).(*auth.Service)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// SessionServiceKey contains *auth.Service
	// Set by: middleware.Guard (pkg/middleware/guard.go)
	// Required by: shell endpoints, role administration handlers
	SessionServiceKey Key = "session_service"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, audit trail
	RequestIDKey Key = "request_id"

	// UserIDKey contains the authenticated user ID string
	// Set by: middleware.Guard once a session is established
	// Used by: Logger, audit trail
	UserIDKey Key = "user_id"

	// TenantIDKey contains the tenant ID string of the current session
	// Set by: middleware.Guard
	// Used by: audit trail, settings cache
	TenantIDKey Key = "tenant_id"

	// LoggerKey contains *observability.Logger
	// Set by: httputil.LoggingMiddleware
	// Used by: Handlers that need structured logging with request context
	LoggerKey Key = "logger"

	// AuditLoggerKey contains audit.Logger
	// Set by: console server middleware
	// Used by: Handlers that record audit events
	AuditLoggerKey Key = "audit_logger"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID adds a user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID retrieves the user ID from context
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return ""
}

// WithTenantID adds a tenant ID to the context
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// GetTenantID retrieves the tenant ID from context
func GetTenantID(ctx context.Context) string {
	if v, ok := ctx.Value(TenantIDKey).(string); ok {
		return v
	}
	return ""
}
