package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/platinummonkey/venuedesk/pkg/audit"
	"github.com/platinummonkey/venuedesk/pkg/backend"
	"github.com/platinummonkey/venuedesk/pkg/modules"
	"github.com/platinummonkey/venuedesk/pkg/observability"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrProtectedRole is returned for edits the admin role does not allow
	ErrProtectedRole = errors.New("the admin role cannot be deleted, renamed or have its modules changed")
	// ErrReservedName is returned when another role would be named admin
	ErrReservedName = errors.New("the name admin is reserved")
	// ErrRoleInUse is returned when deleting a role users still hold
	ErrRoleInUse = errors.New("role is still assigned to users")
	// ErrRoleNotFound is returned for an unknown role id
	ErrRoleNotFound = errors.New("role not found")
	// ErrDuplicateRole is returned when a name is already taken
	ErrDuplicateRole = errors.New("a role with this name already exists")
	// ErrRoleLimit is returned when the plan allows no more custom roles
	ErrRoleLimit = errors.New("custom role limit reached for your plan")
	// ErrInvalidRole wraps input validation failures
	ErrInvalidRole = errors.New("invalid role")
)

// LimitFunc returns the custom role quota of the tenant; -1 is unlimited
type LimitFunc func(ctx context.Context) (int, error)

// RoleOption configures a RoleService
type RoleOption func(*RoleService)

// WithPlanLimit enforces a custom role quota on Create
func WithPlanLimit(fn LimitFunc) RoleOption {
	return func(s *RoleService) {
		s.limit = fn
	}
}

// WithAudit records mutations as actor
func WithAudit(logger audit.Logger, actor audit.Actor) RoleOption {
	return func(s *RoleService) {
		if logger != nil {
			s.audit = logger
		}
		s.actor = actor
	}
}

// WithRoleMetrics records mutation outcomes
func WithRoleMetrics(metrics *observability.Metrics) RoleOption {
	return func(s *RoleService) {
		s.metrics = metrics
	}
}

// WithRoleLogger sets the logger
func WithRoleLogger(logger *observability.Logger) RoleOption {
	return func(s *RoleService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// RoleService manages the roles of one tenant through an authorized Doer
type RoleService struct {
	doer    backend.Doer
	limit   LimitFunc
	audit   audit.Logger
	actor   audit.Actor
	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewRoleService creates a RoleService. doer must carry the caller's token.
func NewRoleService(doer backend.Doer, opts ...RoleOption) *RoleService {
	s := &RoleService{
		doer:   doer,
		audit:  audit.NewNoOpLogger(),
		logger: observability.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func rolePath(id string) string {
	return backend.PathRoles + "/" + url.PathEscape(id)
}

// List returns the tenant's roles
func (s *RoleService) List(ctx context.Context) ([]Role, error) {
	var raw json.RawMessage
	if _, err := s.doer.Do(ctx, backend.Request{Method: http.MethodGet, Path: backend.PathRoles, Endpoint: "roles.list"}, &raw); err != nil {
		return nil, err
	}
	roles, err := decodeList[Role](raw, "roles")
	if err != nil {
		return nil, fmt.Errorf("failed to decode roles: %w", err)
	}
	for i := range roles {
		if roles[i].AllowedModules == nil {
			roles[i].AllowedModules = modules.NewSet()
		}
	}
	return roles, nil
}

// Members returns the tenant's users
func (s *RoleService) Members(ctx context.Context) ([]Member, error) {
	var raw json.RawMessage
	if _, err := s.doer.Do(ctx, backend.Request{Method: http.MethodGet, Path: backend.PathUsers, Endpoint: "users.list"}, &raw); err != nil {
		return nil, err
	}
	members, err := decodeList[Member](raw, "users")
	if err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return members, nil
}

// Overview fetches roles and users concurrently and joins them
func (s *RoleService) Overview(ctx context.Context) (*Overview, error) {
	var (
		roles   []Role
		members []Member
		quota   = -1
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roles, err = s.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		members, err = s.Members(gctx)
		return err
	})
	if s.limit != nil {
		g.Go(func() error {
			n, err := s.limit(gctx)
			if err != nil {
				// the quota is informational here; the screen still renders
				s.logger.WithError(err).Warn("failed to load role quota")
				return nil
			}
			quota = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summaries := make([]RoleSummary, 0, len(roles))
	for _, r := range roles {
		summary := RoleSummary{Role: r, Protected: r.IsAdmin()}
		if summary.Protected {
			summary.AllowedModules = r.EffectiveModules()
		}
		for _, m := range members {
			if m.holds(r) {
				summary.Members++
			}
		}
		summaries = append(summaries, summary)
	}

	return &Overview{
		Roles:          summaries,
		Catalogue:      modules.ByCategory(),
		MaxCustomRoles: quota,
	}, nil
}

func findRole(roles []Role, id string) (Role, bool) {
	for _, r := range roles {
		if r.ID == id {
			return r, true
		}
	}
	return Role{}, false
}

func nameTaken(roles []Role, name, exceptID string) bool {
	for _, r := range roles {
		if r.ID != exceptID && strings.EqualFold(strings.TrimSpace(r.Name), name) {
			return true
		}
	}
	return false
}

func customRoleCount(roles []Role) int {
	n := 0
	for _, r := range roles {
		if !r.IsAdmin() {
			n++
		}
	}
	return n
}

// Create adds a role and returns the refreshed list
func (s *RoleService) Create(ctx context.Context, in RoleInput) ([]Role, error) {
	in = in.normalized()
	if err := in.validate(); err != nil {
		return nil, s.refuse(ctx, "create", "", err)
	}
	if IsAdminName(in.Name) {
		return nil, s.refuse(ctx, "create", "", ErrReservedName)
	}

	roles, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if nameTaken(roles, in.Name, "") {
		return nil, s.refuse(ctx, "create", "", ErrDuplicateRole)
	}
	if s.limit != nil {
		quota, err := s.limit(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load role quota: %w", err)
		}
		if quota >= 0 && customRoleCount(roles) >= quota {
			return nil, s.refuse(ctx, "create", "", ErrRoleLimit)
		}
	}

	var created Role
	_, err = s.doer.Do(ctx, backend.Request{
		Method:   http.MethodPost,
		Path:     backend.PathRoles,
		Body:     in,
		Endpoint: "roles.create",
	}, &created)
	if err != nil {
		s.metrics.RecordRoleMutation("create", "error")
		return nil, err
	}

	s.metrics.RecordRoleMutation("create", "success")
	s.mutated(ctx, audit.EventTypeRoleCreate, created.ID, nil, in, "role created")
	return s.List(ctx)
}

// UpdateByID looks the role up and applies Update
func (s *RoleService) UpdateByID(ctx context.Context, id string, in RoleInput) ([]Role, error) {
	roles, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	current, ok := findRole(roles, id)
	if !ok {
		return nil, ErrRoleNotFound
	}
	return s.update(ctx, roles, current, in)
}

// Update saves in over current and returns the refreshed list. For the
// admin role only the description is editable; when that is all that would
// change and it did not, no call is made and ErrProtectedRole is returned.
func (s *RoleService) Update(ctx context.Context, current Role, in RoleInput) ([]Role, error) {
	if current.IsAdmin() {
		return s.update(ctx, nil, current, in)
	}
	roles, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, roles, current, in)
}

func (s *RoleService) update(ctx context.Context, roles []Role, current Role, in RoleInput) ([]Role, error) {
	in = in.normalized()

	if current.IsAdmin() {
		if in.Description == strings.TrimSpace(current.Description) {
			return nil, s.refuse(ctx, "update", current.ID, ErrProtectedRole)
		}
		in.Name = current.Name
		in.AllowedModules = current.AllowedModules.Clone()
	} else {
		if err := in.validate(); err != nil {
			return nil, s.refuse(ctx, "update", current.ID, err)
		}
		if IsAdminName(in.Name) {
			return nil, s.refuse(ctx, "update", current.ID, ErrReservedName)
		}
		if nameTaken(roles, in.Name, current.ID) {
			return nil, s.refuse(ctx, "update", current.ID, ErrDuplicateRole)
		}
	}

	_, err := s.doer.Do(ctx, backend.Request{
		Method:   http.MethodPut,
		Path:     rolePath(current.ID),
		Body:     in,
		Endpoint: "roles.update",
	}, nil)
	if err != nil {
		s.metrics.RecordRoleMutation("update", "error")
		return nil, err
	}

	s.metrics.RecordRoleMutation("update", "success")
	s.mutated(ctx, audit.EventTypeRoleUpdate, current.ID, &current, in, "role updated")
	return s.List(ctx)
}

// DeleteByID looks the role up and applies Delete
func (s *RoleService) DeleteByID(ctx context.Context, id string) ([]Role, error) {
	roles, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	role, ok := findRole(roles, id)
	if !ok {
		return nil, ErrRoleNotFound
	}
	return s.Delete(ctx, role)
}

// Delete removes role and returns the refreshed list. The admin role is
// refused before any call is made.
func (s *RoleService) Delete(ctx context.Context, role Role) ([]Role, error) {
	if role.IsAdmin() {
		return nil, s.refuse(ctx, "delete", role.ID, ErrProtectedRole)
	}

	members, err := s.Members(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.holds(role) {
			return nil, s.refuse(ctx, "delete", role.ID, ErrRoleInUse)
		}
	}

	_, err = s.doer.Do(ctx, backend.Request{
		Method:   http.MethodDelete,
		Path:     rolePath(role.ID),
		Endpoint: "roles.delete",
	}, nil)
	if err != nil {
		s.metrics.RecordRoleMutation("delete", "error")
		return nil, err
	}

	s.metrics.RecordRoleMutation("delete", "success")
	s.mutated(ctx, audit.EventTypeRoleDelete, role.ID, &role, RoleInput{}, "role deleted")
	return s.List(ctx)
}

func (s *RoleService) refuse(ctx context.Context, action, roleID string, err error) error {
	s.metrics.RecordRoleMutation(action, "refused")
	if logErr := s.audit.LogAuthorization(ctx, audit.EventTypeRoleChangeRefused, s.actor,
		audit.ResourceTypeRole, roleID, audit.EventStatusDenied, err.Error()); logErr != nil {
		s.logger.WithError(logErr).Warn("failed to write audit event")
	}
	return err
}

func (s *RoleService) mutated(ctx context.Context, eventType audit.EventType, roleID string, before *Role, after RoleInput, message string) {
	changes := &audit.ChangeDetails{}
	if before != nil {
		changes.Before = map[string]interface{}{
			"name":           before.Name,
			"allowedModules": before.AllowedModules.Strings(),
		}
	}
	if after.Name != "" {
		changes.After = map[string]interface{}{
			"name":           after.Name,
			"allowedModules": after.AllowedModules.Strings(),
		}
	}
	if err := s.audit.LogDataMutation(ctx, eventType, s.actor, audit.ResourceTypeRole, roleID, changes, message); err != nil {
		s.logger.WithError(err).Warn("failed to write audit event")
	}
}
