package audit

import (
	"context"
	"errors"

	"github.com/platinummonkey/venuedesk/pkg/observability"
)

// MultiLogger fans every event out to several loggers. A failing
// destination does not stop delivery to the others.
type MultiLogger struct {
	recorder
	loggers []Logger
}

// NewMultiLogger creates a logger writing to every destination in order
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{loggers: loggers}
	m.recorder = recorder{log: m.Log}
	return m
}

func (m *MultiLogger) Log(ctx context.Context, event *AuditEvent) error {
	var errs []error
	for _, l := range m.loggers {
		if err := l.Log(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiLogger) Close() error {
	var errs []error
	for _, l := range m.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StructuredLogger mirrors audit events into the application log
type StructuredLogger struct {
	recorder
	logger *observability.Logger
}

// NewStructuredLogger creates an audit logger backed by logger
func NewStructuredLogger(logger *observability.Logger) *StructuredLogger {
	s := &StructuredLogger{logger: logger.WithField("component", "audit")}
	s.recorder = recorder{log: s.Log}
	return s
}

func (s *StructuredLogger) Log(ctx context.Context, event *AuditEvent) error {
	entry := s.logger.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": string(event.EventType),
		"status":     string(event.Status),
	})
	if event.UserID != "" {
		entry = entry.WithField("user_id", event.UserID)
	}
	if event.TenantID != "" {
		entry = entry.WithField("tenant_id", event.TenantID)
	}
	if event.ResourceID != "" {
		entry = entry.WithField("resource", string(event.ResourceType)+":"+event.ResourceID)
	}
	if event.RequestID != "" {
		entry = entry.WithField("request_id", event.RequestID)
	}

	if event.Status == EventStatusSuccess {
		entry.Info(event.Message)
	} else {
		entry.Warn(event.Message)
	}
	return nil
}

func (s *StructuredLogger) Close() error {
	return nil
}
