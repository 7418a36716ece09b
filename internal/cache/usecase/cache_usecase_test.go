package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	cachedomain "marketplace-backend/internal/cache/domain"
	"marketplace-backend/internal/cache/repository"
	"marketplace-backend/internal/testutil"
	"marketplace-backend/pkg/productsearch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryBackend is an in-process Backend that can be switched to fail
type memoryBackend struct {
	mu         sync.Mutex
	entries    map[string]cachedomain.CachedSearch
	filterLive bool
	failGet    bool
	failPut    bool
	failPurge  bool
	puts       int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{entries: map[string]cachedomain.CachedSearch{}, filterLive: true}
}

var errUnavailable = errors.New("backend unavailable")

func (m *memoryBackend) Name() string { return "memory" }

func (m *memoryBackend) Get(_ context.Context, key string, now time.Time) (*cachedomain.CachedSearch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, errUnavailable
	}
	e, ok := m.entries[key]
	if !ok || (m.filterLive && !e.ExpiresAt.After(now)) {
		return nil, nil
	}
	return &e, nil
}

func (m *memoryBackend) Put(_ context.Context, entry *cachedomain.CachedSearch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errUnavailable
	}
	m.puts++
	m.entries[entry.CacheKey] = *entry
	return nil
}

func (m *memoryBackend) DeleteExpired(_ context.Context, key string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok && !e.ExpiresAt.After(now) {
		delete(m.entries, key)
	}
	return nil
}

// refreshingBackend runs onGet once, right after the wrapped Get returns
type refreshingBackend struct {
	repository.Backend
	onGet func()
}

func (b *refreshingBackend) Get(ctx context.Context, key string, now time.Time) (*cachedomain.CachedSearch, error) {
	entry, err := b.Backend.Get(ctx, key, now)
	if hook := b.onGet; hook != nil {
		b.onGet = nil
		hook()
	}
	return entry, err
}

func (m *memoryBackend) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPurge {
		return 0, errUnavailable
	}
	var n int64
	for k, e := range m.entries {
		if e.ExpiresAt.Before(now) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)}
}

var products = []productsearch.Product{
	{"product_id": "1", "product_title": "Runner"},
	{"product_id": "2", "product_title": "Trail"},
}

func TestLookupAbsentKey(t *testing.T) {
	db := testutil.NewTestDB(t, &cachedomain.CachedSearch{})
	uc := NewCacheUsecase(repository.NewGormBackend(db), nil, time.Hour, WithClock(newClock().Now))

	got, ok := uc.Lookup(context.Background(), "missing")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestStoreThenLookupWithinTTL(t *testing.T) {
	db := testutil.NewTestDB(t, &cachedomain.CachedSearch{})
	clock := newClock()
	uc := NewCacheUsecase(repository.NewGormBackend(db), nil, 24*time.Hour, WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, uc.Store(ctx, "shoes_1", products))

	got, ok := uc.Lookup(ctx, "shoes_1")
	require.True(t, ok)
	assert.Equal(t, products, got)

	clock.Advance(24*time.Hour - time.Second)
	got, ok = uc.Lookup(ctx, "shoes_1")
	require.True(t, ok)
	assert.Len(t, got, 2)
}

func TestExpiredEntryIsAbsentAndPurged(t *testing.T) {
	db := testutil.NewTestDB(t, &cachedomain.CachedSearch{})
	clock := newClock()
	uc := NewCacheUsecase(repository.NewGormBackend(db), nil, 24*time.Hour, WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, uc.Store(ctx, "a", products))
	require.NoError(t, uc.Store(ctx, "b", products))

	clock.Advance(25 * time.Hour)

	_, ok := uc.Lookup(ctx, "a")
	assert.False(t, ok)

	// lookup of "a" deleted it, "b" is left for the purge
	var count int64
	require.NoError(t, db.Model(&cachedomain.CachedSearch{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	n, err := uc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, db.Model(&cachedomain.CachedSearch{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStoreTwiceKeepsOneRow(t *testing.T) {
	db := testutil.NewTestDB(t, &cachedomain.CachedSearch{})
	clock := newClock()
	uc := NewCacheUsecase(repository.NewGormBackend(db), nil, time.Hour, WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, uc.Store(ctx, "k", products))
	clock.Advance(30 * time.Minute)
	require.NoError(t, uc.Store(ctx, "k", products[:1]))

	var rows []cachedomain.CachedSearch
	require.NoError(t, db.Where("cache_key = ?", "k").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].ExpiresAt.Equal(clock.Now().Add(time.Hour)))
	assert.True(t, rows[0].CreatedAt.Equal(clock.Now()))

	got, ok := uc.Lookup(ctx, "k")
	require.True(t, ok)
	assert.Len(t, got, 1)
}

func TestPurgeNeverRemovesLiveRows(t *testing.T) {
	db := testutil.NewTestDB(t, &cachedomain.CachedSearch{})
	clock := newClock()
	uc := NewCacheUsecase(repository.NewGormBackend(db), nil, time.Hour, WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, uc.Store(ctx, "live", products))
	clock.Advance(59 * time.Minute)

	n, err := uc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, ok := uc.Lookup(ctx, "live")
	assert.True(t, ok)
}

func TestLookupFallsThroughToSecondary(t *testing.T) {
	db := testutil.NewTestDB(t, &cachedomain.CachedSearch{})
	clock := newClock()
	secondary := newMemoryBackend()
	uc := NewCacheUsecase(repository.NewGormBackend(db), secondary, time.Hour, WithClock(clock.Now))
	ctx := context.Background()

	now := clock.Now()
	require.NoError(t, secondary.Put(ctx, &cachedomain.CachedSearch{
		CacheKey:  "remote-only",
		Results:   `[{"product_id":"9"}]`,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	got, ok := uc.Lookup(ctx, "remote-only")
	require.True(t, ok)
	assert.Equal(t, "9", got[0]["product_id"])
}

func TestLookupFallsThroughWhenPrimaryFails(t *testing.T) {
	primary := newMemoryBackend()
	secondary := newMemoryBackend()
	uc := NewCacheUsecase(primary, secondary, time.Hour, WithClock(newClock().Now))
	ctx := context.Background()

	require.NoError(t, uc.Store(ctx, "k", products))
	primary.failGet = true

	got, ok := uc.Lookup(ctx, "k")
	require.True(t, ok)
	assert.Len(t, got, 2)

	secondary.failGet = true
	_, ok = uc.Lookup(ctx, "k")
	assert.False(t, ok)
}

func TestLookupDeletesExpiredFromUnfilteredBackend(t *testing.T) {
	primary := newMemoryBackend()
	primary.filterLive = false
	clock := newClock()
	uc := NewCacheUsecase(primary, nil, time.Hour, WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, uc.Store(ctx, "k", products))
	clock.Advance(2 * time.Hour)

	_, ok := uc.Lookup(ctx, "k")
	assert.False(t, ok)
	assert.Empty(t, primary.entries)
}

func TestExpiredCleanupKeepsConcurrentRefresh(t *testing.T) {
	db := testutil.NewTestDB(t, &cachedomain.CachedSearch{})
	clock := newClock()
	backend := repository.NewGormBackend(db)
	writer := NewCacheUsecase(backend, nil, time.Hour, WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, writer.Store(ctx, "k", products))
	clock.Advance(2 * time.Hour)

	racing := &refreshingBackend{Backend: backend, onGet: func() {
		require.NoError(t, writer.Store(ctx, "k", products[:1]))
	}}
	reader := NewCacheUsecase(racing, nil, time.Hour, WithClock(clock.Now))

	// the first read saw the expired row
	_, ok := reader.Lookup(ctx, "k")
	assert.False(t, ok)

	got, ok := reader.Lookup(ctx, "k")
	require.True(t, ok)
	assert.Len(t, got, 1)
}

func TestStoreIgnoresSecondaryFailure(t *testing.T) {
	primary := newMemoryBackend()
	secondary := newMemoryBackend()
	secondary.failPut = true
	uc := NewCacheUsecase(primary, secondary, time.Hour, WithClock(newClock().Now))

	require.NoError(t, uc.Store(context.Background(), "k", products))
	assert.Equal(t, 1, primary.puts)
	assert.Zero(t, secondary.puts)
}

func TestStoreReportsPrimaryFailure(t *testing.T) {
	primary := newMemoryBackend()
	primary.failPut = true
	secondary := newMemoryBackend()
	uc := NewCacheUsecase(primary, secondary, time.Hour, WithClock(newClock().Now))

	err := uc.Store(context.Background(), "k", products)
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnavailable)
	assert.Equal(t, 1, secondary.puts)
}

func TestPurgeSucceedsIfEitherBackendSucceeds(t *testing.T) {
	primary := newMemoryBackend()
	secondary := newMemoryBackend()
	clock := newClock()
	uc := NewCacheUsecase(primary, secondary, time.Hour, WithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, uc.Store(ctx, "k", products))
	clock.Advance(2 * time.Hour)

	primary.failPurge = true
	n, err := uc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	secondary.failPurge = true
	_, err = uc.PurgeExpired(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnavailable)
}
