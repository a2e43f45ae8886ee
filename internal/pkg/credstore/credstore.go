// Package credstore is the key/value store that holds short-lived credentials
// (verification codes, token hashes, delegated access codes and cooldown
// markers). Every entry carries its own TTL.
package credstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("credstore: key not found")

// Store is the contract the usecases depend on.
type Store interface {
	// Get returns ErrNotFound for missing keys.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only when key does not exist and reports whether it
	// was stored.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Delete returns how many of keys were removed.
	Delete(ctx context.Context, keys ...string) (int64, error)
	// DeleteByPattern removes every key matching a glob pattern.
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
	// IncrWithTTL increments a counter. ttl is applied when the counter is
	// created; zero keeps it until deleted.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// TTL returns the remaining lifetime of key, a negative duration for keys
	// without one and ErrNotFound for missing keys.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
