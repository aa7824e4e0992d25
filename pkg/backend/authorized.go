package backend

import (
	"context"
	"errors"
)

// Authorized is a Doer bound to one session
type Authorized struct {
	next           Doer
	token          func() string
	onIdentity     func(ctx context.Context, userID, tenantID string)
	onUnauthorized func(ctx context.Context)
}

// AuthorizedOption configures an Authorized doer
type AuthorizedOption func(*Authorized)

// OnIdentity is called with the userId and tenantId response headers
// whenever either is present
func OnIdentity(fn func(ctx context.Context, userID, tenantID string)) AuthorizedOption {
	return func(a *Authorized) {
		a.onIdentity = fn
	}
}

// OnUnauthorized is called after any 401 response
func OnUnauthorized(fn func(ctx context.Context)) AuthorizedOption {
	return func(a *Authorized) {
		a.onUnauthorized = fn
	}
}

// NewAuthorized wraps next. token is read on every request so a refreshed
// token is picked up.
func NewAuthorized(next Doer, token func() string, opts ...AuthorizedOption) *Authorized {
	a := &Authorized{next: next, token: token}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Do implements Doer
func (a *Authorized) Do(ctx context.Context, req Request, out interface{}) (*Response, error) {
	req.Token = a.token()

	resp, err := a.next.Do(ctx, req, out)
	if resp != nil && a.onIdentity != nil {
		userID, tenantID := resp.Header.Get(HeaderUserID), resp.Header.Get(HeaderTenantID)
		if userID != "" || tenantID != "" {
			a.onIdentity(ctx, userID, tenantID)
		}
	}
	if errors.Is(err, ErrUnauthorized) && a.onUnauthorized != nil {
		a.onUnauthorized(ctx)
	}
	return resp, err
}
