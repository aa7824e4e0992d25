package rbac

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/venuedesk/pkg/backend"
	"github.com/platinummonkey/venuedesk/pkg/httputil"
	"github.com/platinummonkey/venuedesk/pkg/modules"
	"github.com/platinummonkey/venuedesk/pkg/observability"
)

// ServiceFunc returns the RoleService for the session making r
type ServiceFunc func(r *http.Request) (*RoleService, error)

// Handlers provides HTTP handlers for role administration
type Handlers struct {
	services ServiceFunc
	allowed  AllowedFunc
}

// NewHandlers creates role administration handlers. allowed resolves the
// caller's module set for the settings gate.
func NewHandlers(services ServiceFunc, allowed AllowedFunc) *Handlers {
	return &Handlers{services: services, allowed: allowed}
}

// RegisterRoutes registers the role administration routes on router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/settings/api").Subrouter()
	api.Use(RequireModule(modules.Settings, h.allowed))

	api.HandleFunc("/roles", h.Overview).Methods("GET")
	api.HandleFunc("/roles", h.CreateRole).Methods("POST")
	api.HandleFunc("/roles/{id}", h.UpdateRole).Methods("PUT")
	api.HandleFunc("/roles/{id}", h.DeleteRole).Methods("DELETE")
	api.HandleFunc("/modules", h.Catalogue).Methods("GET")
}

// roleForm is the wire form of RoleInput. Module names stay strings so
// unknown ones can be reported instead of dropped.
type roleForm struct {
	Name           string   `json:"name"`
	AllowedModules []string `json:"allowedModules"`
	Description    string   `json:"description,omitempty"`
}

func parseRoleInput(w http.ResponseWriter, r *http.Request) (RoleInput, bool) {
	var form roleForm
	if !httputil.ParseJSONOrError(w, r, &form) {
		return RoleInput{}, false
	}
	set, rejected := modules.ParseSet(form.AllowedModules)
	if len(rejected) > 0 {
		httputil.WriteBadRequest(w, "unknown modules: "+strings.Join(rejected, ", "))
		return RoleInput{}, false
	}
	return RoleInput{Name: form.Name, AllowedModules: set, Description: form.Description}, true
}

type rolesResponse struct {
	Roles []Role `json:"roles"`
}

// Overview lists roles with member counts and the module catalogue
func (h *Handlers) Overview(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	overview, err := svc.Overview(r.Context())
	if err != nil {
		writeRoleError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, overview)
}

// CreateRole creates a custom role
func (h *Handlers) CreateRole(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	in, ok := parseRoleInput(w, r)
	if !ok {
		return
	}

	roles, err := svc.Create(r.Context(), in)
	if err != nil {
		writeRoleError(w, r, err)
		return
	}
	httputil.WriteCreated(w, rolesResponse{Roles: roles})
}

// UpdateRole updates a role
func (h *Handlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	in, ok := parseRoleInput(w, r)
	if !ok {
		return
	}

	roles, err := svc.UpdateByID(r.Context(), id, in)
	if err != nil {
		writeRoleError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, rolesResponse{Roles: roles})
}

// DeleteRole deletes a role
func (h *Handlers) DeleteRole(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	roles, err := svc.DeleteByID(r.Context(), id)
	if err != nil {
		writeRoleError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, rolesResponse{Roles: roles})
}

// Catalogue returns the modules grouped by category for role checkboxes
func (h *Handlers) Catalogue(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, modules.ByCategory())
}

func (h *Handlers) service(w http.ResponseWriter, r *http.Request) (*RoleService, bool) {
	svc, err := h.services(r)
	if err != nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return nil, false
	}
	return svc, true
}

func writeRoleError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *backend.APIError

	switch {
	case errors.Is(err, ErrProtectedRole), errors.Is(err, ErrRoleLimit):
		httputil.WriteForbidden(w, err.Error())
	case errors.Is(err, ErrReservedName), errors.Is(err, ErrInvalidRole):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, ErrRoleInUse), errors.Is(err, ErrDuplicateRole):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, ErrRoleNotFound):
		httputil.WriteNotFound(w, err.Error())
	case errors.As(err, &apiErr):
		httputil.WriteErrorMessage(w, apiErr.Status, apiErr.Message)
	case backend.IsNetwork(err):
		httputil.WriteBadGateway(w, "the venue service could not be reached")
	default:
		observability.FromContext(r.Context()).WithError(err).Error("role administration failed")
		httputil.WriteInternalError(w, err)
	}
}
