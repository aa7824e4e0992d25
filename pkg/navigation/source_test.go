package navigation

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/platinummonkey/venuedesk/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallLayout = `
items:
  - label: Home
    path: /
    module: dashboard
`

const twoSectionLayout = `
items:
  - {label: Home, path: /, module: dashboard}
sections:
  - title: Money
    items:
      - {label: Invoices, path: /invoices, module: invoices}
`

func TestDefault_IsValid(t *testing.T) {
	layout := Default()
	require.NoError(t, Validate(layout))
	assert.Len(t, layout.Items, 1)
	assert.Len(t, layout.Sections, 6)
}

func TestParse(t *testing.T) {
	layout, err := Parse([]byte(smallLayout))
	require.NoError(t, err)
	assert.Equal(t, []string{"Home"}, labels(layout.Items))

	_, err = Parse([]byte("items:\n  - label: Home\n    path: /\n    module: dashboard\n    colour: red\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("items:\n  - {label: Quotes, path: /invoices, module: quotes}\n"))
	assert.ErrorIs(t, err, ErrInvalidLayout)

	empty, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
}

func writeLayout(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestNewSource(t *testing.T) {
	src, err := NewSource("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), src.Layout())
	assert.NoError(t, src.Reload())

	_, err = NewSource(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestSource_ReloadKeepsLastGood(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nav.yaml")
	writeLayout(t, path, smallLayout)

	src, err := NewSource(path, observability.Discard())
	require.NoError(t, err)

	var reloads int32
	src.OnReload(func(Layout) { atomic.AddInt32(&reloads, 1) })

	writeLayout(t, path, twoSectionLayout)
	require.NoError(t, src.Reload())
	assert.Len(t, src.Layout().Sections, 1)

	writeLayout(t, path, "items: [")
	assert.Error(t, src.Reload())
	assert.Len(t, src.Layout().Sections, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&reloads))
}

func TestSource_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nav.yaml")
	writeLayout(t, path, smallLayout)

	src, err := NewSource(path, observability.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Watch(ctx) }()

	assert.Eventually(t, func() bool {
		writeLayout(t, path, twoSectionLayout)
		return len(src.Layout().Sections) == 1
	}, 2*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
