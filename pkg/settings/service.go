package settings

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/platinummonkey/venuedesk/pkg/backend"
	"github.com/platinummonkey/venuedesk/pkg/observability"
)

const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = 5 * time.Minute

	cacheName = "settings"
)

// Service fetches tenant settings through the caller's authorized client
type Service struct {
	cache   *expirable.LRU[string, Settings]
	metrics *observability.Metrics
}

// Option configures a Service
type Option func(*Service)

// WithMetrics records cache hits and misses
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a Service caching up to size tenants for ttl.
// Non-positive values use the defaults.
func NewService(size int, ttl time.Duration, opts ...Option) *Service {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	s := &Service{cache: expirable.NewLRU[string, Settings](size, nil, ttl)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the settings for tenantID, fetching GET /api/settings on a
// cache miss. An empty tenantID is fetched but never cached.
func (s *Service) Get(ctx context.Context, tenantID string, doer backend.Doer) (Settings, error) {
	if tenantID != "" {
		if cached, ok := s.cache.Get(tenantID); ok {
			s.metrics.RecordCache(cacheName, true)
			return cached, nil
		}
		s.metrics.RecordCache(cacheName, false)
	}

	var out Settings
	if _, err := doer.Do(ctx, backend.Request{Method: http.MethodGet, Path: backend.PathSettings, Endpoint: "settings.get"}, &out); err != nil {
		return Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	if out.Plan == "" {
		out.Plan = PlanFree
	}
	if out.TenantID == "" {
		out.TenantID = tenantID
	}

	if tenantID != "" {
		s.cache.Add(tenantID, out)
	}
	return out, nil
}

// Invalidate drops the cached settings for tenantID
func (s *Service) Invalidate(tenantID string) {
	s.cache.Remove(tenantID)
}

// Len returns the number of cached tenants
func (s *Service) Len() int {
	return s.cache.Len()
}

// CustomRoleLimit returns a function reporting the tenant's custom role cap,
// suitable as a role service plan limit.
func (s *Service) CustomRoleLimit(tenantID string, doer backend.Doer) func(ctx context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		st, err := s.Get(ctx, tenantID, doer)
		if err != nil {
			return 0, err
		}
		return st.EffectiveLimits().MaxCustomRoles, nil
	}
}
