package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthLogin            EventType = "auth.login"
	EventTypeAuthLoginFailed      EventType = "auth.login_failed"
	EventTypeAuthRegister         EventType = "auth.register"
	EventTypeAuthRegisterFailed   EventType = "auth.register_failed"
	EventTypeAuthLogout           EventType = "auth.logout"
	EventTypeAuthTokenValidate    EventType = "auth.token_validate"
	EventTypeAuthTokenValidateErr EventType = "auth.token_validate_fail"
	EventTypeAuthSessionRevoked   EventType = "auth.session_revoked"

	// Authorization events
	EventTypeAuthzAccessDenied EventType = "authz.access_denied"
	EventTypeAuthzNoAccess     EventType = "authz.no_access"

	// Role administration events
	EventTypeRoleCreate        EventType = "role.create"
	EventTypeRoleUpdate        EventType = "role.update"
	EventTypeRoleDelete        EventType = "role.delete"
	EventTypeRoleChangeRefused EventType = "role.change_refused"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceTypeSession ResourceType = "session"
	ResourceTypeRoute   ResourceType = "route"
	ResourceTypeRole    ResourceType = "role"
	ResourceTypeTenant  ResourceType = "tenant"
)

// Actor identifies who caused an event
type Actor struct {
	UserID   string `json:"user_id,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
	Email    string `json:"email,omitempty"`
}

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	Actor

	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	RequestID string `json:"request_id,omitempty"`

	Message  string                 `json:"message,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Changes  *ChangeDetails         `json:"changes,omitempty"`
}

// ChangeDetails tracks before/after values for updates
type ChangeDetails struct {
	Before map[string]interface{} `json:"before,omitempty"`
	After  map[string]interface{} `json:"after,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *AuditEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an audit event from JSON
func FromJSON(data []byte) (*AuditEvent, error) {
	var event AuditEvent
	err := json.Unmarshal(data, &event)
	return &event, err
}
