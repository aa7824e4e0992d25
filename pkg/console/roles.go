package console

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/venuedesk/pkg/audit"
	"github.com/platinummonkey/venuedesk/pkg/auth"
	"github.com/platinummonkey/venuedesk/pkg/middleware"
	"github.com/platinummonkey/venuedesk/pkg/modules"
	"github.com/platinummonkey/venuedesk/pkg/observability"
	"github.com/platinummonkey/venuedesk/pkg/rbac"
)

// roleRoutes mounts role administration behind an authenticated session.
// The settings module gate itself is applied by rbac.Handlers.
type roleRoutes struct {
	handlers *rbac.Handlers
	guard    *middleware.Guard
}

func newRoleHandlers(opts Options) RouteRegistrar {
	services := func(r *http.Request) (*rbac.RoleService, error) {
		svc, ok := requestService(r)
		if !ok {
			return nil, auth.ErrNotAuthenticated
		}
		sess := svc.Session()
		if sess == nil {
			return nil, auth.ErrNotAuthenticated
		}

		doer := svc.Authorized()
		return rbac.NewRoleService(doer,
			rbac.WithPlanLimit(opts.Settings.CustomRoleLimit(sess.TenantID, doer)),
			rbac.WithAudit(opts.Audit, audit.Actor{UserID: sess.UserID, TenantID: sess.TenantID, Email: sess.Email}),
			rbac.WithRoleMetrics(opts.Metrics),
			rbac.WithRoleLogger(observability.FromContext(r.Context())),
		), nil
	}

	return roleRoutes{
		handlers: rbac.NewHandlers(services, sessionModules),
		guard:    opts.Guard,
	}
}

func (rr roleRoutes) RegisterRoutes(router *mux.Router) {
	api := router.NewRoute().Subrouter()
	api.Use(rr.guard.RequireSession)
	rr.handlers.RegisterRoutes(api)
}

func sessionModules(r *http.Request) (modules.Set, bool) {
	svc, ok := requestService(r)
	if !ok {
		return nil, false
	}
	sess := svc.Session()
	if sess == nil {
		return nil, false
	}
	return sess.AllowedModules, true
}
