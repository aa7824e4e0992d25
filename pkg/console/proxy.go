package console

import (
	"net/http"
	stdhttputil "net/http/httputil"
	"strings"

	"github.com/platinummonkey/venuedesk/pkg/backend"
	"github.com/platinummonkey/venuedesk/pkg/httputil"
	"github.com/platinummonkey/venuedesk/pkg/observability"
)

// proxyPrefix is where the SPA reaches the venue API through the console
const proxyPrefix = "/backend"

// SessionExpiredHeader tells the SPA to navigate to the named location
// after the proxied call invalidated the session
const SessionExpiredHeader = "X-Session-Redirect"

// newProxy forwards /backend/... to the venue API with the session's bearer
// token. Console cookies never leave the console. A 401 from the API ends
// the session.
func (s *Server) newProxy() (http.Handler, error) {
	target := s.opts.Upstream.BaseURL()

	proxy := &stdhttputil.ReverseProxy{
		Rewrite: func(pr *stdhttputil.ProxyRequest) {
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, proxyPrefix)
			pr.Out.URL.RawPath = ""
			pr.SetURL(target)
			pr.SetXForwarded()

			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Del("Authorization")
			if svc, ok := requestService(pr.In); ok {
				if token := svc.Token(); token != "" {
					pr.Out.Header.Set("Authorization", "Bearer "+token)
				}
			}
		},
		Transport: s.opts.Upstream.Transport(),
		ModifyResponse: func(resp *http.Response) error {
			svc, ok := requestService(resp.Request)
			if !ok {
				return nil
			}
			userID, tenantID := resp.Header.Get(backend.HeaderUserID), resp.Header.Get(backend.HeaderTenantID)
			if userID != "" || tenantID != "" {
				svc.ObserveIdentity(resp.Request.Context(), userID, tenantID)
			}
			if resp.StatusCode == http.StatusUnauthorized {
				redirect := svc.Invalidate(resp.Request.Context())
				resp.Header.Set(SessionExpiredHeader, string(redirect))
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			observability.FromContext(r.Context()).WithError(err).WithField("path", r.URL.Path).Warn("venue API proxy failed")
			httputil.WriteBadGateway(w, "the venue service could not be reached")
		},
	}
	return proxy, nil
}
