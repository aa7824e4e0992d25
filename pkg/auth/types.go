package auth

import (
	"errors"

	"github.com/platinummonkey/venuedesk/pkg/backend"
	"github.com/platinummonkey/venuedesk/pkg/modules"
	"github.com/platinummonkey/venuedesk/pkg/session"
)

// State is the authentication state of one browser
type State int

const (
	StateUnknown State = iota
	StateValidating
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateValidating:
		return "validating"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "invalid"
	}
}

// Settled reports whether the guard can make a permit or deny decision
func (s State) Settled() bool {
	return s == StateAnonymous || s == StateAuthenticated
}

// Redirect tells the caller where to navigate after a session change
type Redirect string

const (
	RedirectDefault Redirect = "/"
	RedirectLogin   Redirect = "/login"
)

// Session is the signed-in user. AllowedModules is the permission snapshot
// taken at login or the last validation.
type Session struct {
	Token          string      `json:"-"`
	UserID         string      `json:"userId"`
	TenantID       string      `json:"tenantId"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Role           string      `json:"role"`
	AllowedModules modules.Set `json:"allowedModules"`
}

func sessionFromUser(token string, u backend.User) *Session {
	allowed := u.AllowedModules
	if allowed == nil {
		allowed = modules.NewSet()
	}
	return &Session{
		Token:          token,
		UserID:         u.UserID,
		TenantID:       u.TenantID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		AllowedModules: allowed.Clone(),
	}
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.AllowedModules = s.AllowedModules.Clone()
	return &c
}

func (s *Session) profile() *session.Profile {
	return &session.Profile{
		UserID:         s.UserID,
		TenantID:       s.TenantID,
		Name:           s.Name,
		Email:          s.Email,
		Role:           s.Role,
		AllowedModules: s.AllowedModules.Clone(),
	}
}

// ErrNotAuthenticated is returned by operations that need a session
var ErrNotAuthenticated = errors.New("auth: not authenticated")

// NetworkErrorMessage is shown when the backend could not be reached
const NetworkErrorMessage = "Network error. Please check your connection and try again."

// Kind classifies an *Error
type Kind string

const (
	KindCredentials Kind = "credentials"
	KindNetwork     Kind = "network"
	KindInvalid     Kind = "invalid"
	KindStorage     Kind = "storage"
)

// Error is returned by Login and Register. Message is safe to display.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// toError maps a backend failure to a displayable error
func toError(err error) *Error {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: KindCredentials, Message: apiErr.Message, Err: err}
	}
	return &Error{Kind: KindNetwork, Message: NetworkErrorMessage, Err: err}
}
