package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Backend.Get when the key is absent or expired
var ErrNotFound = errors.New("session: key not found")

// Backend is a string keyed byte store for one storage scope
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes keys; missing keys are not an error
	Delete(ctx context.Context, keys ...string) error
}

// Purger is implemented by backends that keep expired entries around until
// they are swept
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}
