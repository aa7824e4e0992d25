package middleware

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/platinummonkey/venuedesk/pkg/audit"
	"github.com/platinummonkey/venuedesk/pkg/auth"
	"github.com/platinummonkey/venuedesk/pkg/contextkeys"
	"github.com/platinummonkey/venuedesk/pkg/httputil"
	"github.com/platinummonkey/venuedesk/pkg/modules"
	"github.com/platinummonkey/venuedesk/pkg/observability"
	"github.com/platinummonkey/venuedesk/pkg/rbac"
)

const (
	LoginPath    = "/login"
	DefaultPath  = "/"
	NoAccessPath = "/no-access"

	// DefaultLoadingWait is how long a request waits for session validation
	// before the loading page is served
	DefaultLoadingWait = 2 * time.Second
)

// Outcome is what the guard does with a request
type Outcome int

const (
	Loading Outcome = iota
	RedirectLogin
	RedirectDefault
	NoAccess
	Render
)

func (o Outcome) String() string {
	switch o {
	case Loading:
		return "loading"
	case RedirectLogin:
		return "redirect_login"
	case RedirectDefault:
		return "redirect_default"
	case NoAccess:
		return "no_access"
	case Render:
		return "render"
	default:
		return "unknown"
	}
}

// Decision is the guard's verdict for one path
type Decision struct {
	Outcome  Outcome
	Location string
	// Module is the module gating the path, when one does
	Module modules.ID
}

// LoginLocation returns the login URL that returns to next after sign-in
func LoginLocation(next string) string {
	if next == "" || next == DefaultPath {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// Decide maps the auth state, the current session and the requested path
// to an outcome. A denied user without the dashboard module is sent to the
// no-access page rather than to "/", which would deny them again.
func Decide(state auth.State, sess *auth.Session, path string) Decision {
	if !state.Settled() {
		return Decision{Outcome: Loading}
	}
	if state != auth.StateAuthenticated || sess == nil {
		return Decision{Outcome: RedirectLogin, Location: LoginLocation(path)}
	}

	id, _ := modules.ForPath(path)
	if rbac.CanAccessRoute(sess.AllowedModules, path) {
		return Decision{Outcome: Render, Module: id}
	}
	if rbac.CanAccessModule(sess.AllowedModules, modules.Dashboard) {
		return Decision{Outcome: RedirectDefault, Location: DefaultPath, Module: id}
	}
	return Decision{Outcome: NoAccess, Location: NoAccessPath, Module: id}
}

// WithService stores svc on ctx
func WithService(ctx context.Context, svc *auth.Service) context.Context {
	return context.WithValue(ctx, contextkeys.SessionServiceKey, svc)
}

// ServiceFromContext returns the service stored by Guard.Attach
func ServiceFromContext(ctx context.Context) (*auth.Service, bool) {
	svc, ok := ctx.Value(contextkeys.SessionServiceKey).(*auth.Service)
	return svc, ok && svc != nil
}

// Guard applies Decide to HTTP requests
type Guard struct {
	clients *Clients
	logger  *observability.Logger
	audit   audit.Logger
	metrics *observability.Metrics
	wait    time.Duration
	loading http.Handler
}

// GuardOption configures a Guard
type GuardOption func(*Guard)

// WithGuardLogger sets the logger
func WithGuardLogger(logger *observability.Logger) GuardOption {
	return func(g *Guard) { g.logger = logger }
}

// WithGuardAudit records denials
func WithGuardAudit(logger audit.Logger) GuardOption {
	return func(g *Guard) { g.audit = logger }
}

// WithGuardMetrics counts decisions
func WithGuardMetrics(m *observability.Metrics) GuardOption {
	return func(g *Guard) { g.metrics = m }
}

// WithLoadingWait bounds how long Protect waits for validation. Zero
// answers Loading immediately while validation runs.
func WithLoadingWait(d time.Duration) GuardOption {
	return func(g *Guard) { g.wait = d }
}

// WithLoadingPage replaces the built-in loading page
func WithLoadingPage(h http.Handler) GuardOption {
	return func(g *Guard) { g.loading = h }
}

// NewGuard creates a Guard over clients
func NewGuard(clients *Clients, opts ...GuardOption) *Guard {
	g := &Guard{
		clients: clients,
		logger:  observability.Discard(),
		audit:   audit.NewNoOpLogger(),
		wait:    DefaultLoadingWait,
		loading: http.HandlerFunc(loadingPage),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Attach resolves the browser's service, starts its validation and stores
// it on the request context
func (g *Guard) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, _ = g.service(w, r)
		next.ServeHTTP(w, r)
	})
}

func (g *Guard) service(w http.ResponseWriter, r *http.Request) (*http.Request, *auth.Service) {
	if svc, ok := ServiceFromContext(r.Context()); ok {
		return r, svc
	}
	svc := g.clients.Resolve(w, r)
	svc.Begin(r.Context())
	return r.WithContext(WithService(r.Context(), svc)), svc
}

func (g *Guard) settle(r *http.Request, svc *auth.Service) auth.State {
	if g.wait <= 0 {
		return svc.State()
	}
	ctx, cancel := context.WithTimeout(r.Context(), g.wait)
	defer cancel()
	return svc.Await(ctx)
}

// Protect gates next on the module owning the request path
func (g *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, svc := g.service(w, r)
		state := g.settle(r, svc)
		sess := svc.Session()

		decision := Decide(state, sess, r.URL.Path)
		if decision.Outcome == RedirectLogin {
			decision.Location = LoginLocation(r.URL.RequestURI())
		}
		g.metrics.RecordGuard(decision.Outcome.String())

		switch decision.Outcome {
		case Loading:
			w.Header().Set("Cache-Control", "no-store")
			if httputil.WantsJSON(r) {
				w.Header().Set("Retry-After", "1")
				httputil.WriteServiceUnavailable(w, "session is being validated")
				return
			}
			g.loading.ServeHTTP(w, r)
		case RedirectLogin:
			if httputil.WantsJSON(r) {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}
			http.Redirect(w, r, decision.Location, http.StatusFound)
		case RedirectDefault, NoAccess:
			g.denied(r, sess, decision)
			if httputil.WantsJSON(r) {
				httputil.WriteForbidden(w, "you do not have access to this area")
				return
			}
			http.Redirect(w, r, decision.Location, http.StatusFound)
		case Render:
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), sess)))
		}
	})
}

// RequireSession lets only authenticated requests through, regardless of
// module. It answers JSON and never redirects.
func (g *Guard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, svc := g.service(w, r)
		switch state := g.settle(r, svc); {
		case !state.Settled():
			w.Header().Set("Retry-After", "1")
			httputil.WriteServiceUnavailable(w, "session is being validated")
		case state != auth.StateAuthenticated:
			httputil.WriteUnauthorized(w, "authentication required")
		default:
			sess := svc.Session()
			if sess == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), sess)))
		}
	})
}

func withIdentity(ctx context.Context, sess *auth.Session) context.Context {
	ctx = contextkeys.WithUserID(ctx, sess.UserID)
	ctx = contextkeys.WithTenantID(ctx, sess.TenantID)
	return observability.WithLogger(ctx, observability.FromContext(ctx).WithFields(map[string]interface{}{
		"user_id":   sess.UserID,
		"tenant_id": sess.TenantID,
	}))
}

func (g *Guard) denied(r *http.Request, sess *auth.Session, d Decision) {
	eventType := audit.EventTypeAuthzAccessDenied
	if d.Outcome == NoAccess {
		eventType = audit.EventTypeAuthzNoAccess
	}
	actor := audit.Actor{UserID: sess.UserID, TenantID: sess.TenantID, Email: sess.Email}
	if err := g.audit.LogAuthorization(r.Context(), eventType, actor, audit.ResourceTypeRoute, r.URL.Path, audit.EventStatusDenied, "module "+string(d.Module)); err != nil {
		g.logger.WithError(err).Warn("failed to write audit event")
	}
	observability.FromContext(r.Context()).WithFields(map[string]interface{}{
		"path":     r.URL.Path,
		"module":   d.Module,
		"decision": d.Outcome.String(),
	}).Info("route denied")
}

const loadingHTML = `<!doctype html>
<html><head><meta charset="utf-8"><meta http-equiv="refresh" content="1"><title>Loading</title></head>
<body><p>Loading your workspace...</p></body></html>
`

func loadingPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(loadingHTML))
}
