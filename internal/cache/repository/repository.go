package repository

import (
	"context"
	"time"

	cachedomain "marketplace-backend/internal/cache/domain"
)

// PurgeBatchSize bounds how many rows a single purge transaction deletes
const PurgeBatchSize = 100

// Backend is a keyed store for cached searches. The relational store and the
// optional secondary stores all implement it.
type Backend interface {
	// Name identifies the backend in logs and metrics
	Name() string

	// Get returns the entry stored under key, or nil when absent. Backends
	// that filter by expiry server-side only return entries live at now.
	Get(ctx context.Context, key string, now time.Time) (*cachedomain.CachedSearch, error)

	// Put inserts the entry or overwrites the one stored under the same key
	Put(ctx context.Context, entry *cachedomain.CachedSearch) error

	// DeleteExpired removes the entry stored under key only if it is expired
	// at now. An entry refreshed after the caller's read is left in place.
	DeleteExpired(ctx context.Context, key string, now time.Time) error

	// PurgeExpired removes every entry whose expiry is before now and
	// returns how many were removed
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
