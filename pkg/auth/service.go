package auth

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/platinummonkey/venuedesk/pkg/async"
	"github.com/platinummonkey/venuedesk/pkg/audit"
	"github.com/platinummonkey/venuedesk/pkg/backend"
	"github.com/platinummonkey/venuedesk/pkg/observability"
	"github.com/platinummonkey/venuedesk/pkg/session"
)

// DefaultValidateTimeout bounds token validation so a hung backend cannot
// leave a browser in Validating forever
const DefaultValidateTimeout = 10 * time.Second

// API is the part of the backend the Service needs
type API interface {
	backend.Doer
	Login(ctx context.Context, email, password string) (*backend.AuthResult, error)
	RegisterTenant(ctx context.Context, in backend.RegisterRequest) (*backend.AuthResult, error)
	Validate(ctx context.Context, token string) (*backend.ValidateResult, error)
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(logger *observability.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditLogger records session events
func WithAuditLogger(logger audit.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.audit = logger
		}
	}
}

// WithMetrics records auth events
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithValidateTimeout overrides DefaultValidateTimeout
func WithValidateTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.validateTimeout = d
		}
	}
}

// Service manages the session of one browser
type Service struct {
	store *session.Store
	api   API

	logger          *observability.Logger
	audit           audit.Logger
	metrics         *observability.Metrics
	validateTimeout time.Duration

	mu      sync.RWMutex
	state   State
	current *Session

	// commitMu orders writes of the persisted session. generation moves on
	// every login and teardown so a validation started before either one
	// drops its result.
	commitMu   sync.Mutex
	generation uint64

	startOnce sync.Once
	began     atomic.Bool
	ready     chan struct{}

	realtimeMu sync.Mutex
	realtime   map[uint64]io.Closer
	nextHandle uint64
}

// NewService creates a Service in the Unknown state
func NewService(store *session.Store, api API, opts ...Option) *Service {
	s := &Service{
		store:           store,
		api:             api,
		logger:          observability.Discard(),
		audit:           audit.NewNoOpLogger(),
		validateTimeout: DefaultValidateTimeout,
		state:           StateUnknown,
		ready:           make(chan struct{}),
		realtime:        make(map[uint64]io.Closer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("component", "auth")
	return s
}

// State returns the current state
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Session returns a copy of the current session, or nil when not
// authenticated
func (s *Service) Session() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Token returns the bearer token of the current session
func (s *Service) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Ready is closed once Start has settled the initial state
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Start leaves Unknown. With a persisted token it validates it, otherwise
// the state becomes Anonymous. Only the first call does anything.
func (s *Service) Start(ctx context.Context) error {
	var err error
	s.startOnce.Do(func() {
		defer close(s.ready)
		err = s.bootstrap(ctx)
	})
	return err
}

func (s *Service) bootstrap(ctx context.Context) error {
	token, err := s.store.LoadToken(ctx)
	if err != nil {
		s.metrics.RecordStoreError("load_token")
		s.logger.WithError(err).Warn("failed to load persisted token")
		s.setAnonymous()
		return err
	}
	if token == "" {
		s.setAnonymous()
		return nil
	}
	return s.validate(ctx, token)
}

// Begin runs Start in the background. The bootstrap is detached from ctx so
// a cancelled request does not abort it.
func (s *Service) Begin(ctx context.Context) {
	if !s.began.CompareAndSwap(false, true) {
		return
	}
	async.SafeGo(async.Detach(ctx), s.validateTimeout+time.Second, "session bootstrap", s.Start)
}

// Await waits for Start to settle or ctx to end and returns the state then
func (s *Service) Await(ctx context.Context) State {
	select {
	case <-s.ready:
	case <-ctx.Done():
	}
	return s.State()
}

// Validate re-validates the persisted token against the backend. Calling it
// again with the same valid token yields the same session.
func (s *Service) Validate(ctx context.Context) error {
	token, err := s.store.LoadToken(ctx)
	if err != nil {
		s.metrics.RecordStoreError("load_token")
		s.teardown(ctx)
		return err
	}
	if token == "" {
		s.teardown(ctx)
		return nil
	}
	return s.validate(ctx, token)
}

func (s *Service) validate(ctx context.Context, token string) error {
	s.commitMu.Lock()
	gen := s.generation
	s.mu.Lock()
	if s.state == StateUnknown || s.state == StateAnonymous {
		s.state = StateValidating
	}
	s.mu.Unlock()
	s.commitMu.Unlock()

	vctx, cancel := context.WithTimeout(ctx, s.validateTimeout)
	defer cancel()

	result, err := s.api.Validate(vctx, token)
	if err != nil {
		previous := s.actor()
		if !s.teardownAt(ctx, gen) {
			s.logger.WithError(err).Debug("dropping stale validation failure")
			return nil
		}
		s.metrics.RecordAuth("validate", "failure")
		s.logger.WithError(err).Info("token validation failed")
		s.record(ctx, audit.EventTypeAuthTokenValidateErr, previous, audit.EventStatusFailure, err.Error())
		return err
	}

	sess := sessionFromUser(token, result.User)
	if sess.UserID == "" {
		sess.UserID = result.HeaderUserID
	}
	if sess.TenantID == "" {
		sess.TenantID = result.HeaderTenantID
	}

	s.commitMu.Lock()
	if s.generation != gen {
		s.commitMu.Unlock()
		s.logger.Debug("dropping stale validation result")
		return nil
	}
	if err := s.store.SaveProfile(ctx, sess.profile()); err != nil {
		s.metrics.RecordStoreError("save_profile")
		s.logger.WithError(err).Warn("failed to cache profile")
	}
	s.mu.Lock()
	s.current = sess
	s.state = StateAuthenticated
	s.mu.Unlock()
	s.commitMu.Unlock()

	s.metrics.RecordAuth("validate", "success")
	s.record(ctx, audit.EventTypeAuthTokenValidate, s.actor(), audit.EventStatusSuccess, "token validated")
	return nil
}

// Login authenticates with credentials. remember selects the durable scope
// for the token. On failure nothing is persisted and the state is unchanged.
func (s *Service) Login(ctx context.Context, email, password string, remember bool) (Redirect, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", &Error{Kind: KindInvalid, Message: "Email and password are required"}
	}

	result, err := s.api.Login(ctx, email, password)
	if err != nil {
		authErr := toError(err)
		s.metrics.RecordAuth("login", string(authErr.Kind))
		s.record(ctx, audit.EventTypeAuthLoginFailed, audit.Actor{Email: email}, audit.EventStatusFailure, authErr.Message)
		return "", authErr
	}

	if err := s.establish(ctx, result, remember); err != nil {
		s.metrics.RecordAuth("login", string(KindStorage))
		return "", err
	}

	s.metrics.RecordAuth("login", "success")
	s.record(ctx, audit.EventTypeAuthLogin, s.actor(), audit.EventStatusSuccess, "login")
	return RedirectDefault, nil
}

// Register creates a tenant and signs its admin in. The token always goes
// to the durable scope.
func (s *Service) Register(ctx context.Context, in backend.RegisterRequest) (Redirect, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	if in.Name == "" || in.Email == "" || in.Password == "" || in.CompanyName == "" {
		return "", &Error{Kind: KindInvalid, Message: "Name, email, password and company name are required"}
	}

	result, err := s.api.RegisterTenant(ctx, in)
	if err != nil {
		authErr := toError(err)
		s.metrics.RecordAuth("register", string(authErr.Kind))
		s.record(ctx, audit.EventTypeAuthRegisterFailed, audit.Actor{Email: in.Email}, audit.EventStatusFailure, authErr.Message)
		return "", authErr
	}

	if err := s.establish(ctx, result, true); err != nil {
		s.metrics.RecordAuth("register", string(KindStorage))
		return "", err
	}

	s.metrics.RecordAuth("register", "success")
	s.record(ctx, audit.EventTypeAuthRegister, s.actor(), audit.EventStatusSuccess, "tenant registered")
	return RedirectDefault, nil
}

func (s *Service) establish(ctx context.Context, result *backend.AuthResult, remember bool) error {
	if result.Token == "" {
		return &Error{Kind: KindNetwork, Message: NetworkErrorMessage, Err: errors.New("auth: backend returned no token")}
	}

	// settle any running bootstrap first so it cannot clear what is saved below
	s.startOnce.Do(func() { close(s.ready) })

	sess := sessionFromUser(result.Token, result.User)

	s.commitMu.Lock()
	s.generation++
	if err := s.store.SaveToken(ctx, sess.Token, remember); err != nil {
		s.metrics.RecordStoreError("save_token")
		_ = s.store.ClearAll(ctx)
		s.commitMu.Unlock()
		return &Error{Kind: KindStorage, Message: "Could not save your session. Please try again.", Err: err}
	}
	if err := s.store.SaveProfile(ctx, sess.profile()); err != nil {
		s.metrics.RecordStoreError("save_profile")
		s.logger.WithError(err).Warn("failed to cache profile")
	}

	s.mu.Lock()
	previous := s.current
	s.current = sess
	s.state = StateAuthenticated
	s.mu.Unlock()

	// a different user must not inherit the previous user's live streams
	var stale map[uint64]io.Closer
	if previous != nil && previous.UserID != sess.UserID {
		stale = s.takeRealtime()
	}
	s.commitMu.Unlock()

	s.closeHandles(stale)
	return nil
}

// Logout ends the session and returns where to navigate
func (s *Service) Logout(ctx context.Context) Redirect {
	previous := s.actor()
	s.teardown(ctx)
	s.metrics.RecordAuth("logout", "success")
	s.record(ctx, audit.EventTypeAuthLogout, previous, audit.EventStatusSuccess, "logout")
	return RedirectLogin
}

// Invalidate ends the session after the backend rejected its token
func (s *Service) Invalidate(ctx context.Context) Redirect {
	wasAuthenticated := s.State() == StateAuthenticated
	previous := s.actor()
	s.teardown(ctx)

	if wasAuthenticated {
		s.metrics.RecordAuth("invalidate", "success")
		s.logger.WithField("user_id", previous.UserID).Info("session invalidated by backend")
		s.record(ctx, audit.EventTypeAuthSessionRevoked, previous, audit.EventStatusSuccess, "backend rejected token")
	}
	return RedirectLogin
}

// teardown clears every persisted key, moves to Anonymous and then closes
// the realtime handles, so a closed handle always observes Anonymous
func (s *Service) teardown(ctx context.Context) {
	s.commitMu.Lock()
	handles := s.clearLocked(ctx)
	s.commitMu.Unlock()
	s.closeHandles(handles)
}

// teardownAt tears down only if no login or teardown happened since gen
func (s *Service) teardownAt(ctx context.Context, gen uint64) bool {
	s.commitMu.Lock()
	if s.generation != gen {
		s.commitMu.Unlock()
		return false
	}
	handles := s.clearLocked(ctx)
	s.commitMu.Unlock()
	s.closeHandles(handles)
	return true
}

func (s *Service) clearLocked(ctx context.Context) map[uint64]io.Closer {
	s.generation++
	handles := s.takeRealtime()
	if err := s.store.ClearAll(ctx); err != nil {
		s.metrics.RecordStoreError("clear")
		s.logger.WithError(err).Warn("failed to clear persisted session")
	}
	s.setAnonymous()
	return handles
}

func (s *Service) setAnonymous() {
	s.mu.Lock()
	s.current = nil
	s.state = StateAnonymous
	s.mu.Unlock()
}

// AttachRealtime registers a live connection to close when the session
// ends. The returned func detaches it without closing.
func (s *Service) AttachRealtime(c io.Closer) (func(), error) {
	if s.State() != StateAuthenticated {
		return nil, ErrNotAuthenticated
	}

	s.realtimeMu.Lock()
	s.nextHandle++
	id := s.nextHandle
	s.realtime[id] = c
	s.realtimeMu.Unlock()

	return func() {
		s.realtimeMu.Lock()
		delete(s.realtime, id)
		s.realtimeMu.Unlock()
	}, nil
}

func (s *Service) takeRealtime() map[uint64]io.Closer {
	s.realtimeMu.Lock()
	defer s.realtimeMu.Unlock()
	handles := s.realtime
	s.realtime = make(map[uint64]io.Closer)
	return handles
}

func (s *Service) closeRealtime() {
	s.closeHandles(s.takeRealtime())
}

func (s *Service) closeHandles(handles map[uint64]io.Closer) {
	for _, c := range handles {
		if err := c.Close(); err != nil {
			s.logger.WithError(err).Debug("failed to close realtime handle")
		}
	}
}

// Close releases realtime handles but keeps the persisted session, for when
// the Service is evicted from memory
func (s *Service) Close() {
	s.closeRealtime()
}

// Authorized returns a Doer bound to this session. A 401 from any call
// invalidates the session.
func (s *Service) Authorized() backend.Doer {
	return backend.NewAuthorized(s.api, s.Token,
		backend.OnIdentity(s.ObserveIdentity),
		backend.OnUnauthorized(func(ctx context.Context) { s.Invalidate(ctx) }),
	)
}

// ObserveIdentity fills missing profile ids from backend response headers
func (s *Service) ObserveIdentity(ctx context.Context, userID, tenantID string) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	changed := false
	if s.current.UserID == "" && userID != "" {
		s.current.UserID = userID
		changed = true
	}
	if s.current.TenantID == "" && tenantID != "" {
		s.current.TenantID = tenantID
		changed = true
	}
	var profile *session.Profile
	if changed {
		profile = s.current.profile()
	}
	s.mu.Unlock()

	if profile != nil {
		if err := s.store.SaveProfile(ctx, profile); err != nil {
			s.metrics.RecordStoreError("save_profile")
		}
	}
}

func (s *Service) actor() audit.Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return audit.Actor{}
	}
	return audit.Actor{UserID: s.current.UserID, TenantID: s.current.TenantID, Email: s.current.Email}
}

func (s *Service) record(ctx context.Context, eventType audit.EventType, actor audit.Actor, status audit.EventStatus, message string) {
	if err := s.audit.LogAuthentication(ctx, eventType, actor, status, message); err != nil {
		s.logger.WithError(err).Warn("failed to write audit event")
	}
}
