package backend

import (
	"encoding/json"

	"github.com/platinummonkey/venuedesk/pkg/modules"
)

// Paths of the endpoints the console calls
const (
	PathLogin    = "/api/users/login"
	PathTenants  = "/api/tenants"
	PathValidate = "/api/users/validate"
	PathUsers    = "/api/users"
	PathRoles    = "/api/settings/roles"
	PathSettings = "/api/settings"
)

// Identity response headers echoed by the backend
const (
	HeaderUserID   = "userId"
	HeaderTenantID = "tenantId"
)

// User is the profile returned by login, registration and validation
type User struct {
	UserID         string      `json:"userId"`
	TenantID       string      `json:"tenantId"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Role           string      `json:"role"`
	AllowedModules modules.Set `json:"allowedModules"`
}

// UnmarshalJSON accepts id or _id when userId is missing and never leaves
// AllowedModules nil
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var aux struct {
		plain
		ID      string `json:"id"`
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*u = User(aux.plain)
	if u.UserID == "" {
		u.UserID = aux.ID
	}
	if u.UserID == "" {
		u.UserID = aux.MongoID
	}
	u.normalize()
	return nil
}

// normalize applies the fail-closed default for a missing module list
func (u *User) normalize() {
	if u.AllowedModules == nil {
		u.AllowedModules = modules.NewSet()
	}
}

// Credentials is the login request body
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest creates a tenant and its first admin user
type RegisterRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	CompanyName    string `json:"companyName"`
	Phone          string `json:"phone,omitempty"`
	BillingAddress string `json:"billingAddress,omitempty"`
}

// AuthResult is returned by login and registration
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ValidateResult is the validated profile plus any identity headers
type ValidateResult struct {
	User           User
	HeaderUserID   string
	HeaderTenantID string
}
