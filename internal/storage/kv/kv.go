// Package kv provides the string-keyed persistence areas that hold the
// session-scoped conversation log and the longer-lived contact record.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is missing or expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is a string-keyed slot store. A zero ttl keeps the value until it
// is overwritten or deleted.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
