package console

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/venuedesk/pkg/audit"
	"github.com/platinummonkey/venuedesk/pkg/httputil"
	"github.com/platinummonkey/venuedesk/pkg/middleware"
	"github.com/platinummonkey/venuedesk/pkg/navigation"
	"github.com/platinummonkey/venuedesk/pkg/observability"
	"github.com/platinummonkey/venuedesk/pkg/settings"
)

// DefaultHeartbeat is the interval of SSE keep-alive comments
const DefaultHeartbeat = 25 * time.Second

// DefaultMaxBodyBytes caps request bodies when Options leaves it unset
const DefaultMaxBodyBytes = 1 << 20

// Upstream is the venue API the /backend proxy forwards to
type Upstream interface {
	BaseURL() *url.URL
	Transport() http.RoundTripper
}

// RouteRegistrar is implemented by handler groups mounted on the server
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// Options wires a Server
type Options struct {
	Clients    *middleware.Clients
	Guard      *middleware.Guard
	Upstream   Upstream
	Navigation *navigation.Source
	Settings   *settings.Service
	// LoginLimiter throttles POST /login and /register. Nil uses an
	// in-memory limiter with the login defaults.
	LoginLimiter middleware.Limiter
	Audit        audit.Logger
	Metrics      *observability.Metrics
	Logger       *observability.Logger
	// StaticDir holds the built SPA. Empty serves the embedded shell page.
	StaticDir    string
	MaxBodyBytes int64
	Heartbeat    time.Duration
	// LoadingWait bounds how long auth pages wait for session validation
	LoadingWait time.Duration
}

// Server is the console HTTP handler
type Server struct {
	router  *mux.Router
	handler http.Handler
	opts    Options
	pages   *template.Template
	logger  *observability.Logger
}

// NewServer validates opts and builds the route tree
func NewServer(opts Options) (*Server, error) {
	if opts.Clients == nil || opts.Guard == nil {
		return nil, errors.New("console: clients and guard are required")
	}
	if opts.Upstream == nil {
		return nil, errors.New("console: upstream is required")
	}
	if opts.Navigation == nil {
		src, err := navigation.NewSource("", opts.Logger)
		if err != nil {
			return nil, err
		}
		opts.Navigation = src
	}
	if opts.Settings == nil {
		opts.Settings = settings.NewService(0, 0, settings.WithMetrics(opts.Metrics))
	}
	if opts.LoginLimiter == nil {
		opts.LoginLimiter = middleware.NewRateLimiter(middleware.LoginRateLimitConfig())
	}
	if opts.Audit == nil {
		opts.Audit = audit.NewNoOpLogger()
	}
	if opts.Logger == nil {
		opts.Logger = observability.Discard()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	if opts.LoadingWait <= 0 {
		opts.LoadingWait = middleware.DefaultLoadingWait
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: mux.NewRouter(),
		opts:   opts,
		pages:  pages,
		logger: opts.Logger,
	}
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	s.handler = httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(opts.Logger),
		httputil.RecoveryMiddleware(opts.Logger),
		httputil.SecurityHeadersMiddleware,
		httputil.MaxBytesMiddleware(opts.MaxBodyBytes),
		observability.HTTPMetricsMiddleware(opts.Metrics, s.routeTemplate),
	)(s.router)
	s.handler = otelhttp.NewHandler(s.handler, "venue-console",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + s.routeTemplate(r)
		}),
	)
	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(s.opts.Guard.Attach)

	limited := func(scope string, h http.HandlerFunc) http.Handler {
		return middleware.RateLimit(s.opts.LoginLimiter, scope, s.opts.Metrics)(h)
	}
	s.router.HandleFunc("/login", s.loginPage).Methods("GET")
	s.router.Handle("/login", limited("login", s.login)).Methods("POST")
	s.router.HandleFunc("/register", s.registerPage).Methods("GET")
	s.router.Handle("/register", limited("register", s.register)).Methods("POST")
	s.router.HandleFunc("/logout", s.logout).Methods("POST")
	s.router.HandleFunc(middleware.NoAccessPath, s.noAccess).Methods("GET")

	shell := s.router.PathPrefix("/shell").Subrouter()
	shell.Use(s.opts.Guard.RequireSession)
	shell.HandleFunc("/session", s.shellSession).Methods("GET")
	shell.HandleFunc("/navigation", s.shellNavigation).Methods("GET")
	shell.HandleFunc("/events", s.shellEvents).Methods("GET")

	proxy, err := s.newProxy()
	if err != nil {
		return err
	}
	s.router.PathPrefix(proxyPrefix + "/").Handler(s.opts.Guard.RequireSession(proxy))

	s.RegisterRoutes(newRoleHandlers(s.opts))

	assets, app := s.spa()
	s.router.PathPrefix("/assets/").Handler(assets)
	s.router.MatcherFunc(s.staticFile).Handler(assets).Methods("GET", "HEAD")
	s.router.PathPrefix("/").Handler(s.opts.Guard.Protect(app)).Methods("GET", "HEAD")
	return nil
}

// RegisterRoutes mounts a handler group. Groups registered after NewServer
// returns sit behind the SPA catch-all for GET requests.
func (s *Server) RegisterRoutes(registrar RouteRegistrar) {
	registrar.RegisterRoutes(s.router)
}

// Router exposes the route tree
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// routeTemplate labels metrics and spans with the matched route so ids in
// paths do not explode cardinality
func (s *Server) routeTemplate(r *http.Request) string {
	var match mux.RouteMatch
	if s.router.Match(r, &match) && match.Route != nil {
		if tpl, err := match.Route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
