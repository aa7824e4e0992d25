package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/platinummonkey/venuedesk/pkg/modules"
)

const (
	tokenKey   = "token"
	profileKey = "userData"
)

// ErrEmptyToken is returned when saving a blank token
var ErrEmptyToken = errors.New("session: empty token")

// Namespace scopes keys to one browser. Device comes from the persistent
// cookie, Tab from the session cookie.
type Namespace struct {
	Device string
	Tab    string
}

// Profile is the cached description of the signed-in user
type Profile struct {
	UserID         string      `json:"userId"`
	TenantID       string      `json:"tenantId"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Role           string      `json:"role"`
	AllowedModules modules.Set `json:"allowedModules"`
}

// Store reads and writes the token and profile of one browser
type Store struct {
	durable Backend
	scoped  Backend
	ns      Namespace
}

// NewStore creates a Store. durable holds remembered tokens and the profile,
// scoped holds tokens that should not survive the browser session.
func NewStore(durable, scoped Backend, ns Namespace) *Store {
	return &Store{durable: durable, scoped: scoped, ns: ns}
}

// Namespace returns the keys prefix pair of this store
func (s *Store) Namespace() Namespace {
	return s.ns
}

func (s *Store) durableKey(name string) string {
	return s.ns.Device + ":" + name
}

func (s *Store) scopedKey(name string) string {
	return s.ns.Tab + ":" + name
}

// SaveToken writes token to the durable scope when remember is set and to the
// session scope otherwise. The other scope's copy is removed so exactly one
// scope holds a token.
func (s *Store) SaveToken(ctx context.Context, token string, remember bool) error {
	if token == "" {
		return ErrEmptyToken
	}

	if remember {
		if err := s.durable.Set(ctx, s.durableKey(tokenKey), []byte(token)); err != nil {
			return fmt.Errorf("failed to save durable token: %w", err)
		}
		if err := s.scoped.Delete(ctx, s.scopedKey(tokenKey)); err != nil {
			return fmt.Errorf("failed to clear session token: %w", err)
		}
		return nil
	}

	if err := s.scoped.Set(ctx, s.scopedKey(tokenKey), []byte(token)); err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	if err := s.durable.Delete(ctx, s.durableKey(tokenKey)); err != nil {
		return fmt.Errorf("failed to clear durable token: %w", err)
	}
	return nil
}

// LoadToken returns the persisted token, durable scope first. An empty
// string means no token.
func (s *Store) LoadToken(ctx context.Context) (string, error) {
	token, err := s.durable.Get(ctx, s.durableKey(tokenKey))
	switch {
	case err == nil && len(token) > 0:
		return string(token), nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return "", fmt.Errorf("failed to load durable token: %w", err)
	}

	token, err = s.scoped.Get(ctx, s.scopedKey(tokenKey))
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load session token: %w", err)
	}
	return string(token), nil
}

// SaveProfile writes the profile to the durable scope. A nil profile removes it.
func (s *Store) SaveProfile(ctx context.Context, p *Profile) error {
	if p == nil {
		return s.durable.Delete(ctx, s.durableKey(profileKey))
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := s.durable.Set(ctx, s.durableKey(profileKey), data); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// LoadProfile returns the cached profile or nil when there is none. A
// profile that cannot be decoded is deleted and reported as missing.
func (s *Store) LoadProfile(ctx context.Context) (*Profile, error) {
	data, err := s.durable.Get(ctx, s.durableKey(profileKey))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		_ = s.durable.Delete(ctx, s.durableKey(profileKey))
		return nil, nil
	}
	if p.AllowedModules == nil {
		p.AllowedModules = modules.NewSet()
	}
	return &p, nil
}

// ClearAll removes the token from both scopes and the profile
func (s *Store) ClearAll(ctx context.Context) error {
	return errors.Join(
		s.durable.Delete(ctx, s.durableKey(tokenKey), s.durableKey(profileKey)),
		s.scoped.Delete(ctx, s.scopedKey(tokenKey)),
	)
}
