package usecase

import (
	"context"

	"marketplace-backend/pkg/productsearch"
)

// CacheUsecase is a best-effort TTL cache for product search results. Callers
// must not rely on hits for correctness.
type CacheUsecase interface {
	// Lookup returns the cached products for key, if a live entry exists
	Lookup(ctx context.Context, key string) ([]productsearch.Product, bool)

	// Store writes products under key. The returned error reflects only the
	// authoritative (primary) write.
	Store(ctx context.Context, key string, products []productsearch.Product) error

	// PurgeExpired removes expired entries from every backend. It fails only
	// when no backend could be purged.
	PurgeExpired(ctx context.Context) (int64, error)
}
