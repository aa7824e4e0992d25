package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/platinummonkey/venuedesk/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closer struct{ closed bool }

func (c *closer) Close() error {
	c.closed = true
	return nil
}

func cookieMap(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestNewClients_RequiresBackends(t *testing.T) {
	_, err := NewClients(ClientsConfig{API: newFakeAPI()})
	assert.Error(t, err)

	_, err = NewClients(ClientsConfig{Durable: session.NewMemoryBackend(0), Scoped: session.NewMemoryBackend(0)})
	assert.Error(t, err)
}

func TestClients_IssuesCookies(t *testing.T) {
	h := newHarness(t, 8)
	rec := httptest.NewRecorder()

	h.clients.Resolve(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := cookieMap(rec)
	require.Contains(t, cookies, DeviceCookie)
	require.Contains(t, cookies, TabCookie)
	assert.Equal(t, 365*24*60*60, cookies[DeviceCookie].MaxAge)
	assert.Zero(t, cookies[TabCookie].MaxAge)
	assert.True(t, cookies[DeviceCookie].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[TabCookie].SameSite)
}

func TestClients_ReusesServicePerBrowser(t *testing.T) {
	h := newHarness(t, 8)
	cookies := h.signIn(t, "tok")

	resolve := func(cookies []*http.Cookie) (*httptest.ResponseRecorder, interface{}) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		return rec, h.clients.Resolve(rec, req)
	}

	rec, a := resolve(cookies)
	assert.Empty(t, cookieMap(rec))
	_, b := resolve(cookies)
	assert.Same(t, a, b)

	// a new tab cookie is a different session scope on the same device
	_, c := resolve(cookies[:1])
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, h.clients.Len())
}

func TestClients_ReplacesMalformedCookie(t *testing.T) {
	h := newHarness(t, 8)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookie, Value: "../../etc"})
	rec := httptest.NewRecorder()

	h.clients.Resolve(rec, req)

	cookies := cookieMap(rec)
	require.Contains(t, cookies, DeviceCookie)
	assert.NotEqual(t, "../../etc", cookies[DeviceCookie].Value)
}

func TestClients_EvictionClosesRealtime(t *testing.T) {
	h := newHarness(t, 1)
	h.api.grant("tok")
	cookies := h.signIn(t, "tok")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	svc := h.clients.Resolve(httptest.NewRecorder(), req)
	require.NoError(t, svc.Start(req.Context()))

	handle := &closer{}
	_, err := svc.AttachRealtime(handle)
	require.NoError(t, err)

	h.clients.Resolve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, handle.closed)
	assert.Equal(t, 1, h.clients.Len())
}

func TestClients_Close(t *testing.T) {
	h := newHarness(t, 8)
	h.clients.Resolve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	h.clients.Close()
	assert.Zero(t, h.clients.Len())
}

