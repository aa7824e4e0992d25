package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/platinummonkey/venuedesk/pkg/auth"
	"github.com/platinummonkey/venuedesk/pkg/contextkeys"
	"github.com/platinummonkey/venuedesk/pkg/modules"
	"github.com/platinummonkey/venuedesk/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionWith(ids ...modules.ID) *auth.Session {
	return &auth.Session{UserID: "u1", TenantID: "t1", AllowedModules: modules.NewSet(ids...)}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		state    auth.State
		sess     *auth.Session
		path     string
		outcome  Outcome
		location string
	}{
		{"unknown waits", auth.StateUnknown, nil, "/events", Loading, ""},
		{"validating waits", auth.StateValidating, sessionWith(modules.Events), "/events", Loading, ""},
		{"anonymous goes to login", auth.StateAnonymous, nil, "/customers/12", RedirectLogin, "/login?next=%2Fcustomers%2F12"},
		{"anonymous at root", auth.StateAnonymous, nil, "/", RedirectLogin, "/login"},
		{"allowed renders", auth.StateAuthenticated, sessionWith(modules.Dashboard, modules.Events), "/events/9", Render, ""},
		{"denied goes home", auth.StateAuthenticated, sessionWith(modules.Dashboard, modules.Events), "/customers", RedirectDefault, "/"},
		{"denied without dashboard", auth.StateAuthenticated, sessionWith(modules.Events), "/customers", NoAccess, "/no-access"},
		{"root without dashboard", auth.StateAuthenticated, sessionWith(modules.Events), "/", NoAccess, "/no-access"},
		{"unmapped denied", auth.StateAuthenticated, sessionWith(modules.Dashboard), "/not-a-module", RedirectDefault, "/"},
		{"empty modules fail closed", auth.StateAuthenticated, sessionWith(), "/settings", NoAccess, "/no-access"},
		{"authenticated without session", auth.StateAuthenticated, nil, "/events", RedirectLogin, "/login?next=%2Fevents"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.state, tt.sess, tt.path)
			assert.Equal(t, tt.outcome, d.Outcome)
			assert.Equal(t, tt.location, d.Location)
		})
	}
}

func TestDecide_NeverRedirectsToADeniedPath(t *testing.T) {
	for _, allowed := range []modules.Set{modules.NewSet(), modules.NewSet(modules.Events), modules.NewSet(modules.Dashboard)} {
		for _, m := range modules.All() {
			d := Decide(auth.StateAuthenticated, &auth.Session{AllowedModules: allowed}, m.Path)
			if d.Outcome == RedirectDefault {
				assert.Equal(t, Render, Decide(auth.StateAuthenticated, &auth.Session{AllowedModules: allowed}, d.Location).Outcome)
			}
		}
	}
}

func TestDecide_EveryAllowedModuleRenders(t *testing.T) {
	allowed := modules.NewSet(modules.Dashboard, modules.Quotes, modules.Staff)
	for _, m := range modules.All() {
		d := Decide(auth.StateAuthenticated, &auth.Session{AllowedModules: allowed}, m.Path)
		assert.Equal(t, allowed.Has(m.ID), d.Outcome == Render, m.Path)
	}
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "no_access", NoAccess.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}

func protectedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-User", contextkeys.GetUserID(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, path string, cookies []*http.Cookie, json bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	if json {
		req.Header.Set("Accept", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGuard_Protect(t *testing.T) {
	h := newHarness(t, 16)
	h.api.grant("tok-sales", modules.Dashboard, modules.Events)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	guard := NewGuard(h.clients, WithGuardMetrics(metrics))
	handler := guard.Protect(protectedHandler())

	cookies := h.signIn(t, "tok-sales")

	rec := serve(handler, "/events/3", cookies, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-tok-sales", rec.Header().Get("X-User"))

	rec = serve(handler, "/customers", cookies, false)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = serve(handler, "/customers", cookies, true)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.GuardDecisionsTotal.WithLabelValues("render")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.GuardDecisionsTotal.WithLabelValues("redirect_default")))
}

func TestGuard_ProtectAnonymous(t *testing.T) {
	h := newHarness(t, 16)
	handler := NewGuard(h.clients).Protect(protectedHandler())

	rec := serve(handler, "/quotes?status=open", nil, false)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?next=%2Fquotes%3Fstatus%3Dopen", rec.Header().Get("Location"))

	var names []string
	for _, c := range rec.Result().Cookies() {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{DeviceCookie, TabCookie}, names)

	rec = serve(handler, "/quotes", nil, true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuard_ProtectRejectedToken(t *testing.T) {
	h := newHarness(t, 16)
	handler := NewGuard(h.clients).Protect(protectedHandler())
	cookies := h.signIn(t, "revoked")

	rec := serve(handler, "/events", cookies, false)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?next=%2Fevents", rec.Header().Get("Location"))
	assert.Zero(t, h.durable.Len())
}

func TestGuard_ProtectNoAccess(t *testing.T) {
	h := newHarness(t, 16)
	h.api.grant("tok-kitchen", modules.Equipment)
	handler := NewGuard(h.clients).Protect(protectedHandler())
	cookies := h.signIn(t, "tok-kitchen")

	rec := serve(handler, "/", cookies, false)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, NoAccessPath, rec.Header().Get("Location"))
}

func TestGuard_ProtectLoading(t *testing.T) {
	h := newHarness(t, 16)
	h.api.grant("slow", modules.Dashboard)
	h.api.block = make(chan struct{})
	handler := NewGuard(h.clients, WithLoadingWait(20*time.Millisecond)).Protect(protectedHandler())
	cookies := h.signIn(t, "slow")

	rec := serve(handler, "/", cookies, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Loading")
	assert.Empty(t, rec.Header().Get("Location"))

	rec = serve(handler, "/", cookies, true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	close(h.api.block)
	assert.Eventually(t, func() bool {
		return serve(handler, "/", cookies, false).Header().Get("X-User") == "u-slow"
	}, time.Second, 10*time.Millisecond)
}

func TestGuard_RequireSession(t *testing.T) {
	h := newHarness(t, 16)
	h.api.grant("tok", modules.Events)
	handler := NewGuard(h.clients).RequireSession(protectedHandler())

	rec := serve(handler, "/shell/session", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(handler, "/shell/session", h.signIn(t, "tok"), false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-tok", rec.Header().Get("X-User"))
}

func TestGuard_AttachSharesService(t *testing.T) {
	h := newHarness(t, 16)
	guard := NewGuard(h.clients)

	var first, second *auth.Service
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		second, _ = ServiceFromContext(r.Context())
	})
	outer := guard.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first, _ = ServiceFromContext(r.Context())
		guard.RequireSession(inner).ServeHTTP(w, r)
	}))

	serve(outer, "/", nil, false)
	require.NotNil(t, first)
	assert.Equal(t, 1, h.clients.Len())
	assert.Nil(t, second)
}

func TestLoginLocation(t *testing.T) {
	assert.Equal(t, "/login", LoginLocation(""))
	assert.Equal(t, "/login", LoginLocation("/"))
	assert.Equal(t, "/login?next=%2Fstaff", LoginLocation("/staff"))
}
