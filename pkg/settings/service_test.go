package settings

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/platinummonkey/venuedesk/pkg/backend"
	"github.com/platinummonkey/venuedesk/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDoer struct {
	body  string
	err   error
	calls int32
}

func (d *stubDoer) Do(ctx context.Context, req backend.Request, out interface{}) (*backend.Response, error) {
	atomic.AddInt32(&d.calls, 1)
	if d.err != nil {
		return nil, d.err
	}
	if req.Path != backend.PathSettings {
		return nil, &backend.APIError{Status: 404, Path: req.Path}
	}
	return &backend.Response{Status: 200}, json.Unmarshal([]byte(d.body), out)
}

func TestService_GetCaches(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	svc := NewService(0, 0, WithMetrics(metrics))
	doer := &stubDoer{body: `{"venueName":"Hall","plan":"pro"}`}

	first, err := svc.Get(context.Background(), "t1", doer)
	require.NoError(t, err)
	assert.Equal(t, "t1", first.TenantID)
	assert.Equal(t, PlanPro, first.Plan)

	second, err := svc.Get(context.Background(), "t1", doer)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&doer.calls))
	assert.Equal(t, 1, svc.Len())

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("settings")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheMissesTotal.WithLabelValues("settings")))
}

func TestService_Invalidate(t *testing.T) {
	svc := NewService(8, time.Minute)
	doer := &stubDoer{body: `{"plan":"free"}`}

	_, err := svc.Get(context.Background(), "t1", doer)
	require.NoError(t, err)
	svc.Invalidate("t1")
	_, err = svc.Get(context.Background(), "t1", doer)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&doer.calls))
}

func TestService_Expires(t *testing.T) {
	svc := NewService(8, 10*time.Millisecond)
	doer := &stubDoer{body: `{"plan":"free"}`}

	_, err := svc.Get(context.Background(), "t1", doer)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	_, err = svc.Get(context.Background(), "t1", doer)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&doer.calls))
}

func TestService_EmptyTenantNotCached(t *testing.T) {
	svc := NewService(8, time.Minute)
	doer := &stubDoer{body: `{}`}

	st, err := svc.Get(context.Background(), "", doer)
	require.NoError(t, err)
	assert.Equal(t, PlanFree, st.Plan)
	_, err = svc.Get(context.Background(), "", doer)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&doer.calls))
	assert.Zero(t, svc.Len())
}

func TestService_GetError(t *testing.T) {
	svc := NewService(8, time.Minute)
	doer := &stubDoer{err: &backend.NetworkError{Op: "settings.get", Err: errors.New("refused")}}

	_, err := svc.Get(context.Background(), "t1", doer)
	require.Error(t, err)
	assert.True(t, backend.IsNetwork(err))
	assert.Zero(t, svc.Len())
}

func TestService_CustomRoleLimit(t *testing.T) {
	svc := NewService(8, time.Minute)

	limit := svc.CustomRoleLimit("t1", &stubDoer{body: `{"plan":"custom","limits":{"maxCustomRoles":4,"maxStaff":9}}`})
	n, err := limit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	limit = svc.CustomRoleLimit("t2", &stubDoer{body: `{"plan":"enterprise"}`})
	n, err = limit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Unlimited, n)

	limit = svc.CustomRoleLimit("t3", &stubDoer{err: errors.New("boom")})
	_, err = limit(context.Background())
	assert.Error(t, err)
}
