package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/platinummonkey/venuedesk/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenPurger struct {
	MemoryBackend
}

func (b *brokenPurger) PurgeExpired(ctx context.Context) (int64, error) {
	return 0, errors.New("locked")
}

func TestJanitor_RunOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	mem := NewMemoryBackend(time.Second)
	mem.now = func() time.Time { return now }
	require.NoError(t, mem.Set(ctx, "a", []byte("1")))
	require.NoError(t, mem.Set(ctx, "b", []byte("2")))
	now = now.Add(time.Minute)

	files, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	j := NewJanitor(observability.Discard(), metrics, map[string]Backend{
		"memory": mem,
		"file":   files,
		"broken": &brokenPurger{},
	})
	assert.Equal(t, 2, j.Len(), "file backend has nothing to purge")

	assert.Equal(t, int64(2), j.RunOnce(ctx))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.SessionsPurgedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SessionStoreErrors.WithLabelValues("purge")))
}

func TestJanitor_StartStop(t *testing.T) {
	j := NewJanitor(nil, nil, nil)

	assert.Error(t, j.Start("not a schedule"))
	require.NoError(t, j.Start(""))
	assert.NoError(t, j.Stop(context.Background()))
}
