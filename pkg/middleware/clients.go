package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/platinummonkey/venuedesk/pkg/audit"
	"github.com/platinummonkey/venuedesk/pkg/auth"
	"github.com/platinummonkey/venuedesk/pkg/observability"
	"github.com/platinummonkey/venuedesk/pkg/session"
)

const (
	// DeviceCookie outlives the browser and keys the durable scope
	DeviceCookie = "venue_device"
	// TabCookie is a session cookie and keys the session scope
	TabCookie = "venue_tab"

	deviceCookieMaxAge = 365 * 24 * time.Hour

	DefaultClientCacheSize = 4096
)

// ClientsConfig configures Clients
type ClientsConfig struct {
	Durable session.Backend
	Scoped  session.Backend
	API     auth.API

	Logger          *observability.Logger
	Audit           audit.Logger
	Metrics         *observability.Metrics
	ValidateTimeout time.Duration

	// CacheSize bounds the number of live auth services
	CacheSize int
	// SecureCookies marks the identity cookies Secure
	SecureCookies bool
}

// Clients resolves the auth.Service of the browser making a request
type Clients struct {
	cfg   ClientsConfig
	cache *lru.Cache[session.Namespace, *auth.Service]
}

// NewClients creates a resolver. Evicted services drop their realtime
// handles; their persisted sessions survive and are revalidated on the
// next request.
func NewClients(cfg ClientsConfig) (*Clients, error) {
	if cfg.Durable == nil || cfg.Scoped == nil {
		return nil, fmt.Errorf("both session backends are required")
	}
	if cfg.API == nil {
		return nil, fmt.Errorf("a venue API client is required")
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultClientCacheSize
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.Discard()
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NewNoOpLogger()
	}

	c := &Clients{cfg: cfg}
	cache, err := lru.NewWithEvict[session.Namespace, *auth.Service](cfg.CacheSize, func(_ session.Namespace, svc *auth.Service) {
		svc.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client cache: %w", err)
	}
	c.cache = cache
	return c, nil
}

// Resolve returns the service for the browser making r, issuing identity
// cookies on w when they are missing or malformed
func (c *Clients) Resolve(w http.ResponseWriter, r *http.Request) *auth.Service {
	ns := session.Namespace{
		Device: c.identity(w, r, DeviceCookie, deviceCookieMaxAge),
		Tab:    c.identity(w, r, TabCookie, 0),
	}

	if svc, ok := c.cache.Get(ns); ok {
		return svc
	}

	store := session.NewStore(c.cfg.Durable, c.cfg.Scoped, ns)
	svc := auth.NewService(store, c.cfg.API,
		auth.WithLogger(c.cfg.Logger),
		auth.WithAuditLogger(c.cfg.Audit),
		auth.WithMetrics(c.cfg.Metrics),
		auth.WithValidateTimeout(c.cfg.ValidateTimeout),
	)
	if existing, ok, _ := c.cache.PeekOrAdd(ns, svc); ok {
		return existing
	}
	c.cfg.Metrics.SetSessionsCached(c.cache.Len())
	return svc
}

// Len returns the number of cached services
func (c *Clients) Len() int {
	return c.cache.Len()
}

// Close releases every cached service
func (c *Clients) Close() {
	c.cache.Purge()
	c.cfg.Metrics.SetSessionsCached(0)
}

func (c *Clients) identity(w http.ResponseWriter, r *http.Request, name string, maxAge time.Duration) string {
	if cookie, err := r.Cookie(name); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	cookie := &http.Cookie{
		Name:     name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		cookie.MaxAge = int(maxAge.Seconds())
	}
	http.SetCookie(w, cookie)
	return id
}
