package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/platinummonkey/venuedesk/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 1 << 20

// Config configures a Client
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit is requests per second across the console. Zero disables it.
	RateLimit float64
	Burst     int
	// Transport overrides the base round tripper, mostly for tests
	Transport http.RoundTripper
}

// Request describes one backend call
type Request struct {
	Method string
	Path   string
	Body   interface{}
	Token  string
	// Endpoint labels metrics; defaults to Path
	Endpoint string
}

// Response carries the status and headers of a completed call
type Response struct {
	Status int
	Header http.Header
}

// Doer performs backend requests, decoding the JSON body into out when out
// is non-nil
type Doer interface {
	Do(ctx context.Context, req Request, out interface{}) (*Response, error)
}

// Client is the HTTP client for the venue API
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	metrics *observability.Metrics
}

// NewClient creates a client. metrics may be nil.
func NewClient(config Config, metrics *observability.Metrics) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme and host are required", config.BaseURL)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	transport := config.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		metrics: metrics,
	}
	if config.RateLimit > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}
	return c, nil
}

// BaseURL returns the backend root
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Transport returns the instrumented round tripper shared by the client
func (c *Client) Transport() http.RoundTripper {
	return c.http.Transport
}

// Do implements Doer
func (c *Client) Do(ctx context.Context, req Request, out interface{}) (*Response, error) {
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = req.Path
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{Op: endpoint, Err: err}
		}
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.RecordBackend(endpoint, 0, time.Since(start))
		return nil, &NetworkError{Op: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.metrics.RecordBackend(endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &NetworkError{Op: endpoint, Err: err}
	}

	result := &Response{Status: resp.StatusCode, Header: resp.Header}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, newAPIError(resp.StatusCode, req.Path, data)
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return result, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
		}
	}
	return result, nil
}

// Ping reports whether the backend answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String()+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: "ping", Err: err}
	}
	resp.Body.Close()
	return nil
}

// Login exchanges credentials for a token
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var result AuthResult
	_, err := c.Do(ctx, Request{
		Method:   http.MethodPost,
		Path:     PathLogin,
		Body:     Credentials{Email: email, Password: password},
		Endpoint: "login",
	}, &result)
	if err != nil {
		return nil, err
	}
	result.User.normalize()
	return &result, nil
}

// RegisterTenant creates a tenant with its admin user
func (c *Client) RegisterTenant(ctx context.Context, in RegisterRequest) (*AuthResult, error) {
	var result AuthResult
	_, err := c.Do(ctx, Request{
		Method:   http.MethodPost,
		Path:     PathTenants,
		Body:     in,
		Endpoint: "register",
	}, &result)
	if err != nil {
		return nil, err
	}
	result.User.normalize()
	return &result, nil
}

// Validate checks token and returns the current profile
func (c *Client) Validate(ctx context.Context, token string) (*ValidateResult, error) {
	var body struct {
		User User `json:"user"`
	}
	resp, err := c.Do(ctx, Request{
		Method:   http.MethodGet,
		Path:     PathValidate,
		Token:    token,
		Endpoint: "validate",
	}, &body)
	if err != nil {
		return nil, err
	}
	body.User.normalize()
	return &ValidateResult{
		User:           body.User,
		HeaderUserID:   resp.Header.Get(HeaderUserID),
		HeaderTenantID: resp.Header.Get(HeaderTenantID),
	}, nil
}
