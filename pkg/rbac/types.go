package rbac

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/platinummonkey/venuedesk/pkg/modules"
)

// AdminRoleName is the reserved, protected role every tenant has
const AdminRoleName = "admin"

// MaxRoleNameLength bounds role names accepted by the console
const MaxRoleNameLength = 64

// IsAdminName reports whether name is the reserved admin role, ignoring case
// and surrounding space
func IsAdminName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), AdminRoleName)
}

// Role is a named module set assignable to users
type Role struct {
	ID             string      `json:"_id"`
	Name           string      `json:"name"`
	AllowedModules modules.Set `json:"allowedModules"`
	Description    string      `json:"description,omitempty"`
}

// IsAdmin reports whether r is the protected admin role
func (r Role) IsAdmin() bool {
	return IsAdminName(r.Name)
}

// EffectiveModules is what the role grants. The admin role implicitly grants
// every module whatever is stored.
func (r Role) EffectiveModules() modules.Set {
	if r.IsAdmin() {
		return modules.AllSet()
	}
	return r.AllowedModules.Clone()
}

// RoleInput is the editable part of a role
type RoleInput struct {
	Name           string      `json:"name"`
	AllowedModules modules.Set `json:"allowedModules"`
	Description    string      `json:"description,omitempty"`
}

func (in RoleInput) normalized() RoleInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.AllowedModules = in.AllowedModules.Clone()
	return in
}

func (in RoleInput) validate() error {
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRole)
	}
	if len(in.Name) > MaxRoleNameLength {
		return fmt.Errorf("%w: name is longer than %d characters", ErrInvalidRole, MaxRoleNameLength)
	}
	return nil
}

// Member is a user as listed by the backend, reduced to what role
// administration needs
type Member struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UnmarshalJSON accepts role as a string or as an object with _id or name
func (m *Member) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID    string          `json:"_id"`
		Name  string          `json:"name"`
		Email string          `json:"email"`
		Role  json.RawMessage `json:"role"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.ID, m.Name, m.Email, m.Role = aux.ID, aux.Name, aux.Email, ""

	if len(aux.Role) == 0 || string(aux.Role) == "null" {
		return nil
	}
	var role string
	if err := json.Unmarshal(aux.Role, &role); err == nil {
		m.Role = role
		return nil
	}
	var ref struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(aux.Role, &ref); err != nil {
		return fmt.Errorf("unsupported role reference: %w", err)
	}
	m.Role = ref.ID
	if m.Role == "" {
		m.Role = ref.Name
	}
	return nil
}

// holds reports whether m is assigned r, matching by id or by name
func (m Member) holds(r Role) bool {
	if m.Role == "" {
		return false
	}
	return m.Role == r.ID || strings.EqualFold(m.Role, r.Name)
}

// RoleSummary is a role with its member count
type RoleSummary struct {
	Role
	Members   int  `json:"members"`
	Protected bool `json:"protected"`
}

// Overview is everything the role administration screen renders
type Overview struct {
	Roles     []RoleSummary           `json:"roles"`
	Catalogue []modules.CategoryGroup `json:"catalogue"`
	// MaxCustomRoles is the plan quota; -1 means unlimited
	MaxCustomRoles int `json:"maxCustomRoles"`
}

// decodeList reads either a bare array or an object wrapping it under key
func decodeList[T any](data json.RawMessage, key string) ([]T, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return []T{}, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var out []T
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	inner, ok := wrapped[key]
	if !ok {
		return []T{}, nil
	}
	return decodeList[T](inner, key)
}
