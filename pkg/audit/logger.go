package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/venuedesk/pkg/contextkeys"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log logs an audit event
	Log(ctx context.Context, event *AuditEvent) error

	// LogAuthentication logs a session lifecycle event
	LogAuthentication(ctx context.Context, eventType EventType, actor Actor, status EventStatus, message string) error

	// LogAuthorization logs an access decision
	LogAuthorization(ctx context.Context, eventType EventType, actor Actor, resourceType ResourceType, resourceID string, status EventStatus, message string) error

	// LogDataMutation logs a change made through the console
	LogDataMutation(ctx context.Context, eventType EventType, actor Actor, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error

	// Close flushes and releases the logger
	Close() error
}

// recorder implements the typed helpers on top of a single log function so
// every Logger builds events the same way
type recorder struct {
	log func(ctx context.Context, event *AuditEvent) error
}

func (r recorder) LogAuthentication(ctx context.Context, eventType EventType, actor Actor, status EventStatus, message string) error {
	event := NewEvent(ctx, eventType, status)
	event.Actor = actor
	event.ResourceType = ResourceTypeSession
	event.Message = message
	return r.log(ctx, event)
}

func (r recorder) LogAuthorization(ctx context.Context, eventType EventType, actor Actor, resourceType ResourceType, resourceID string, status EventStatus, message string) error {
	event := NewEvent(ctx, eventType, status)
	event.Actor = actor
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Message = message
	return r.log(ctx, event)
}

func (r recorder) LogDataMutation(ctx context.Context, eventType EventType, actor Actor, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error {
	event := NewEvent(ctx, eventType, EventStatusSuccess)
	event.Actor = actor
	event.ResourceType = resourceType
	event.ResourceID = resourceID
	event.Changes = changes
	event.Message = message
	return r.log(ctx, event)
}

// NewEvent creates an event stamped with an id, the current time and the
// request id found on ctx
func NewEvent(ctx context.Context, eventType EventType, status EventStatus) *AuditEvent {
	return &AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		RequestID: contextkeys.GetRequestID(ctx),
	}
}

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, contextkeys.AuditLoggerKey, logger)
}

// FromContext retrieves the audit logger from context, or a no-op logger
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextkeys.AuditLoggerKey).(Logger); ok {
		return logger
	}
	return NewNoOpLogger()
}

// noOpLogger is used when no audit destination is configured
type noOpLogger struct {
	recorder
}

// NewNoOpLogger returns a Logger that discards everything
func NewNoOpLogger() Logger {
	l := &noOpLogger{}
	l.recorder = recorder{log: l.Log}
	return l
}

func (l *noOpLogger) Log(ctx context.Context, event *AuditEvent) error {
	return nil
}

func (l *noOpLogger) Close() error {
	return nil
}
