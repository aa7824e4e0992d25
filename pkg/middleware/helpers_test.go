package middleware

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/platinummonkey/venuedesk/pkg/backend"
	"github.com/platinummonkey/venuedesk/pkg/modules"
	"github.com/platinummonkey/venuedesk/pkg/session"
	"github.com/stretchr/testify/require"
)

// fakeAPI validates tokens from a fixed table
type fakeAPI struct {
	mu     sync.Mutex
	users  map[string]backend.User
	block  chan struct{}
	checks int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{users: map[string]backend.User{}}
}

func (f *fakeAPI) grant(token string, ids ...modules.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[token] = backend.User{UserID: "u-" + token, TenantID: "t1", Email: token + "@venue.test", AllowedModules: modules.NewSet(ids...)}
}

func (f *fakeAPI) Do(ctx context.Context, req backend.Request, out interface{}) (*backend.Response, error) {
	return &backend.Response{Status: http.StatusOK, Header: http.Header{}}, nil
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*backend.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[password]
	if !ok {
		return nil, &backend.APIError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	}
	return &backend.AuthResult{Token: password, User: u}, nil
}

func (f *fakeAPI) RegisterTenant(ctx context.Context, in backend.RegisterRequest) (*backend.AuthResult, error) {
	return nil, &backend.APIError{Status: http.StatusBadRequest, Message: "registration closed"}
}

func (f *fakeAPI) Validate(ctx context.Context, token string) (*backend.ValidateResult, error) {
	f.mu.Lock()
	block := f.block
	f.checks++
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, &backend.NetworkError{Op: "validate", Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[token]
	if !ok {
		return nil, &backend.APIError{Status: http.StatusUnauthorized, Message: "invalid token"}
	}
	return &backend.ValidateResult{User: u}, nil
}

type harness struct {
	api     *fakeAPI
	durable *session.MemoryBackend
	scoped  *session.MemoryBackend
	clients *Clients
}

func newHarness(t *testing.T, size int) *harness {
	t.Helper()
	h := &harness{
		api:     newFakeAPI(),
		durable: session.NewMemoryBackend(0),
		scoped:  session.NewMemoryBackend(0),
	}
	clients, err := NewClients(ClientsConfig{Durable: h.durable, Scoped: h.scoped, API: h.api, CacheSize: size})
	require.NoError(t, err)
	h.clients = clients
	return h
}

// signIn stores token in the durable scope of a fixed device and returns
// the cookies identifying that browser
func (h *harness) signIn(t *testing.T, token string) []*http.Cookie {
	t.Helper()
	device, tab := "6f1c0d2e-8a4b-4c3d-9e5f-0a1b2c3d4e5f", "0f9e8d7c-6b5a-4c3d-8e1f-a0b1c2d3e4f5"
	store := session.NewStore(h.durable, h.scoped, session.Namespace{Device: device, Tab: tab})
	require.NoError(t, store.SaveToken(context.Background(), token, true))
	return []*http.Cookie{
		{Name: DeviceCookie, Value: device},
		{Name: TabCookie, Value: tab},
	}
}
