package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend stores one file per key under a root directory. Key names are
// base64url encoded so any key is a valid file name.
type FileBackend struct {
	rootDir string
}

// NewFileBackend creates the root directory if needed
func NewFileBackend(rootDir string) (*FileBackend, error) {
	if err := os.MkdirAll(rootDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileBackend{rootDir: rootDir}, nil
}

func (f *FileBackend) path(key string) string {
	return filepath.Join(f.rootDir, base64.RawURLEncoding.EncodeToString([]byte(key)))
}

func (f *FileBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return data, nil
}

// Set writes through a temporary file and renames it into place
func (f *FileBackend) Set(ctx context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(f.rootDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("failed to store session file: %w", err)
	}
	return nil
}

func (f *FileBackend) Delete(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to delete session file: %w", err))
		}
	}
	return errors.Join(errs...)
}
