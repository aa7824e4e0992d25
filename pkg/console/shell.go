package console

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/platinummonkey/venuedesk/pkg/auth"
	"github.com/platinummonkey/venuedesk/pkg/httputil"
	"github.com/platinummonkey/venuedesk/pkg/modules"
	"github.com/platinummonkey/venuedesk/pkg/navigation"
	"github.com/platinummonkey/venuedesk/pkg/observability"
	"github.com/platinummonkey/venuedesk/pkg/rbac"
	"github.com/platinummonkey/venuedesk/pkg/settings"
)

// sessionResponse is what the SPA bootstraps from
type sessionResponse struct {
	User     *auth.Session      `json:"user"`
	Modules  []modules.Module   `json:"modules"`
	Settings *settings.Settings `json:"settings,omitempty"`
	Limits   *settings.Limits   `json:"limits,omitempty"`
}

// shellSession reports the current user. Settings are best effort: the
// plan never changes what the user may reach.
func (s *Server) shellSession(w http.ResponseWriter, r *http.Request) {
	svc, sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}

	resp := sessionResponse{User: sess, Modules: rbac.Accessible(sess.AllowedModules)}
	if resp.Modules == nil {
		resp.Modules = []modules.Module{}
	}
	st, err := s.opts.Settings.Get(r.Context(), sess.TenantID, svc.Authorized())
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("failed to load tenant settings")
	} else {
		limits := st.EffectiveLimits()
		resp.Settings = &st
		resp.Limits = &limits
	}

	// the settings call may have invalidated the session
	if svc.State() != auth.StateAuthenticated {
		httputil.WriteUnauthorized(w, "session expired")
		return
	}
	httputil.WriteSuccess(w, resp)
}

type navigationResponse struct {
	navigation.Layout
	Expanded []string `json:"expanded"`
}

// shellNavigation returns the sidebar filtered to the user's modules. The
// active query parameter names the current path; expanded lists the
// sections the client currently has open.
func (s *Server) shellNavigation(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}

	layout := navigation.Filter(s.opts.Navigation.Layout(), sess.AllowedModules)
	expanded := navigation.Reconcile(layout,
		navigation.NewExpansion(r.URL.Query()["expanded"]...),
		httputil.ParseQueryString(r, "active", ""),
	)
	httputil.WriteSuccess(w, navigationResponse{Layout: layout, Expanded: expanded.Titles()})
}

func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) (*auth.Service, *auth.Session, bool) {
	svc, ok := requestService(r)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return nil, nil, false
	}
	sess := svc.Session()
	if sess == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return nil, nil, false
	}
	return svc, sess, true
}

// stream is a server-sent events connection registered as a realtime
// handle on the session. Close ends the stream.
type stream struct {
	done chan struct{}
	once sync.Once
}

func newStream() *stream {
	return &stream{done: make(chan struct{})}
}

func (c *stream) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func writeEvent(w http.ResponseWriter, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}

// shellEvents holds a server-sent events stream open for the session. When
// the session ends the client receives a logout event naming where to go.
func (s *Server) shellEvents(w http.ResponseWriter, r *http.Request) {
	svc, sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteErrorMessage(w, http.StatusNotImplemented, "streaming unsupported")
		return
	}

	conn := newStream()
	detach, err := svc.AttachRealtime(conn)
	if err != nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	defer detach()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-store")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	logger := observability.FromContext(r.Context()).WithField("user_id", sess.UserID)
	if err := writeEvent(w, "ready", map[string]string{"userId": sess.UserID}); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(s.opts.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-conn.done:
			// an evicted service also closes its handles; only a real
			// sign-out sends the client to the login page
			if svc.State() != auth.StateAuthenticated {
				if err := writeEvent(w, "logout", redirectResponse{Redirect: string(auth.RedirectLogin)}); err == nil {
					flusher.Flush()
				}
				logger.Debug("event stream closed by logout")
			}
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
