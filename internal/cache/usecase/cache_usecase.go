package usecase

import (
	"context"
	"encoding/json"
	"time"

	cachedomain "marketplace-backend/internal/cache/domain"
	"marketplace-backend/internal/cache/repository"
	"marketplace-backend/pkg/logger"
	"marketplace-backend/pkg/metrics"
	"marketplace-backend/pkg/productsearch"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// cacheUsecase implements CacheUsecase over an authoritative primary backend
// and an optional secondary backend
type cacheUsecase struct {
	primary   repository.Backend
	secondary repository.Backend
	ttl       time.Duration
	now       func() time.Time
	log       *zap.SugaredLogger
}

// Option customizes a cacheUsecase
type Option func(*cacheUsecase)

// WithClock replaces the wall clock, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(u *cacheUsecase) { u.now = now }
}

// NewCacheUsecase creates a cache over primary and, when non-nil, secondary.
func NewCacheUsecase(primary, secondary repository.Backend, ttl time.Duration, opts ...Option) CacheUsecase {
	if ttl <= 0 {
		ttl = cachedomain.DefaultTTL
	}
	u := &cacheUsecase{
		primary:   primary,
		secondary: secondary,
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
		log:       logger.GetLogger("cache"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *cacheUsecase) backends() []repository.Backend {
	if u.secondary == nil {
		return []repository.Backend{u.primary}
	}
	return []repository.Backend{u.primary, u.secondary}
}

func (u *cacheUsecase) Lookup(ctx context.Context, key string) ([]productsearch.Product, bool) {
	now := u.now()
	for _, b := range u.backends() {
		if products, ok := u.lookupIn(ctx, b, key, now); ok {
			return products, true
		}
	}
	return nil, false
}

func (u *cacheUsecase) lookupIn(ctx context.Context, b repository.Backend, key string, now time.Time) ([]productsearch.Product, bool) {
	entry, err := b.Get(ctx, key, now)
	if err != nil {
		metrics.CacheLookups.WithLabelValues(b.Name(), "error").Inc()
		u.log.Warnw("Error retrieving cached results", "backend", b.Name(), "key", key, "error", err)
		return nil, false
	}
	if entry == nil {
		metrics.CacheLookups.WithLabelValues(b.Name(), "miss").Inc()
		return nil, false
	}

	if entry.IsExpired(now) {
		metrics.CacheLookups.WithLabelValues(b.Name(), "expired").Inc()
		u.log.Infow("Removing expired cache", "backend", b.Name(), "key", key)
		if err := b.DeleteExpired(ctx, key, now); err != nil {
			u.log.Warnw("Error removing expired cache", "backend", b.Name(), "key", key, "error", err)
		}
		return nil, false
	}

	var products []productsearch.Product
	if err := json.Unmarshal([]byte(entry.Results), &products); err != nil {
		metrics.CacheLookups.WithLabelValues(b.Name(), "error").Inc()
		u.log.Warnw("Ignoring undecodable cache entry", "backend", b.Name(), "key", key, "error", err)
		return nil, false
	}
	if products == nil {
		products = []productsearch.Product{}
	}

	metrics.CacheLookups.WithLabelValues(b.Name(), "hit").Inc()
	u.log.Infow("Cache hit", "backend", b.Name(), "key", key)
	return products, true
}

func (u *cacheUsecase) Store(ctx context.Context, key string, products []productsearch.Product) error {
	if products == nil {
		products = []productsearch.Product{}
	}
	data, err := json.Marshal(products)
	if err != nil {
		u.log.Errorw("Error serializing results", "key", key, "error", err)
		return errors.Wrap(err, "serialize results")
	}

	now := u.now()
	newEntry := func() *cachedomain.CachedSearch {
		return &cachedomain.CachedSearch{
			CacheKey:  key,
			Results:   string(data),
			CreatedAt: now,
			ExpiresAt: now.Add(u.ttl),
		}
	}

	if u.secondary != nil {
		if err := u.secondary.Put(ctx, newEntry()); err != nil {
			metrics.CacheWrites.WithLabelValues(u.secondary.Name(), "error").Inc()
			u.log.Warnw("Error caching results in secondary store", "backend", u.secondary.Name(), "key", key, "error", err)
		} else {
			metrics.CacheWrites.WithLabelValues(u.secondary.Name(), "ok").Inc()
		}
	}

	if err := u.primary.Put(ctx, newEntry()); err != nil {
		metrics.CacheWrites.WithLabelValues(u.primary.Name(), "error").Inc()
		u.log.Errorw("Error caching results", "backend", u.primary.Name(), "key", key, "error", err)
		return errors.Wrapf(err, "cache write to %s", u.primary.Name())
	}

	metrics.CacheWrites.WithLabelValues(u.primary.Name(), "ok").Inc()
	u.log.Infow("Successfully cached results", "backend", u.primary.Name(), "key", key)
	return nil
}

func (u *cacheUsecase) PurgeExpired(ctx context.Context) (int64, error) {
	now := u.now()

	var (
		total     int64
		succeeded bool
		combined  error
	)

	for _, b := range u.backends() {
		n, err := b.PurgeExpired(ctx, now)
		total += n
		if n > 0 {
			metrics.CachePurged.WithLabelValues(b.Name()).Add(float64(n))
		}
		if err != nil {
			u.log.Errorw("Error clearing expired cache", "backend", b.Name(), "removed", n, "error", err)
			combined = errors.CombineErrors(combined, errors.Wrapf(err, "purge %s", b.Name()))
			continue
		}
		succeeded = true
		u.log.Infow("Cleared expired cache entries", "backend", b.Name(), "removed", n)
	}

	if !succeeded {
		return total, combined
	}
	return total, nil
}
