package navigation

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/platinummonkey/venuedesk/pkg/observability"
	"gopkg.in/yaml.v3"
)

//go:embed default_layout.yaml
var defaultLayout []byte

// Default returns the built-in layout
func Default() Layout {
	layout, err := Parse(defaultLayout)
	if err != nil {
		panic(fmt.Sprintf("navigation: built-in layout: %v", err))
	}
	return layout
}

// Parse decodes and validates a YAML layout. Unknown keys are rejected.
func Parse(data []byte) (Layout, error) {
	var layout Layout
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&layout); err != nil && !errors.Is(err, io.EOF) {
		return Layout{}, fmt.Errorf("failed to parse layout: %w", err)
	}
	if err := Validate(layout); err != nil {
		return Layout{}, err
	}
	return layout, nil
}

// Load reads and parses the layout file at path
func Load(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to read layout: %w", err)
	}
	return Parse(data)
}

// Source serves the current layout and reloads it when the file changes
type Source struct {
	path   string
	logger *observability.Logger

	mu     sync.RWMutex
	layout Layout
	reload []func(Layout)
}

// NewSource loads path, or the built-in layout when path is empty
func NewSource(path string, logger *observability.Logger) (*Source, error) {
	if logger == nil {
		logger = observability.Discard()
	}
	s := &Source{path: path, logger: logger.WithField("component", "navigation")}
	if path == "" {
		s.layout = Default()
		return s, nil
	}
	layout, err := Load(path)
	if err != nil {
		return nil, err
	}
	s.layout = layout
	return s, nil
}

// Layout returns the current layout
func (s *Source) Layout() Layout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layout
}

// OnReload registers fn to run after each successful reload
func (s *Source) OnReload(fn func(Layout)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reload = append(s.reload, fn)
}

// Reload rereads the file. On error the previous layout stays in place.
func (s *Source) Reload() error {
	if s.path == "" {
		return nil
	}
	layout, err := Load(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.layout = layout
	hooks := append([]func(Layout){}, s.reload...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(layout)
	}
	s.logger.WithField("path", s.path).Info("navigation layout reloaded")
	return nil
}

// Watch reloads the layout whenever its file is written or replaced, until
// ctx is done. The parent directory is watched so editors that save by
// rename are picked up.
func (s *Source) Watch(ctx context.Context) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.path, err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.WithError(err).WithField("path", s.path).Warn("keeping previous navigation layout")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.WithError(err).Warn("navigation watcher error")
		}
	}
}
