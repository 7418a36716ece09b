package repository

import (
	"context"
	"time"

	cachedomain "marketplace-backend/internal/cache/domain"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultRedisPrefix namespaces cache keys in a shared redis
const DefaultRedisPrefix = "marketplace:cache"

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1]
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisEntry struct {
	CacheKey  string    `msgpack:"k"`
	Results   string    `msgpack:"r"`
	CreatedAt time.Time `msgpack:"c"`
	ExpiresAt time.Time `msgpack:"e"`
}

// redisBackend implements Backend on redis. Entries carry a native TTL so
// redis drops them on expiry.
type redisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend creates a redis backend. The caller owns the client.
func NewRedisBackend(client *redis.Client, prefix string) Backend {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &redisBackend{
		client: client,
		prefix: prefix,
	}
}

func (r *redisBackend) Name() string {
	return "redis"
}

func (r *redisBackend) prefixKey(key string) string {
	return r.prefix + ":" + key
}

func (r *redisBackend) Get(ctx context.Context, key string, _ time.Time) (*cachedomain.CachedSearch, error) {
	data, err := r.client.Get(ctx, r.prefixKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}

	var e redisEntry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(err, "decode redis entry")
	}

	return &cachedomain.CachedSearch{
		CacheKey:  e.CacheKey,
		Results:   e.Results,
		CreatedAt: e.CreatedAt,
		ExpiresAt: e.ExpiresAt,
	}, nil
}

func (r *redisBackend) Put(ctx context.Context, entry *cachedomain.CachedSearch) error {
	ttl := entry.ExpiresAt.Sub(entry.CreatedAt)
	if ttl <= 0 {
		return errors.Wrap(r.client.Del(ctx, r.prefixKey(entry.CacheKey)).Err(), "redis del")
	}

	data, err := msgpack.Marshal(redisEntry{
		CacheKey:  entry.CacheKey,
		Results:   entry.Results,
		CreatedAt: entry.CreatedAt.UTC(),
		ExpiresAt: entry.ExpiresAt.UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "encode redis entry")
	}

	return errors.Wrap(r.client.Set(ctx, r.prefixKey(entry.CacheKey), data, ttl).Err(), "redis set")
}

func (r *redisBackend) DeleteExpired(ctx context.Context, key string, now time.Time) error {
	k := r.prefixKey(key)
	data, err := r.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "redis get")
	}

	var e redisEntry
	if err := msgpack.Unmarshal(data, &e); err == nil && e.ExpiresAt.After(now) {
		return nil
	}

	_, err = r.deleteIfUnchanged(ctx, k, data)
	return err
}

func (r *redisBackend) deleteIfUnchanged(ctx context.Context, k string, data []byte) (int64, error) {
	n, err := compareAndDelete.Run(ctx, r.client, []string{k}, data).Int64()
	if err != nil {
		return 0, errors.Wrap(err, "redis compare-and-delete")
	}
	return n, nil
}

// PurgeExpired removes entries whose recorded expiry has passed but which redis
// still holds, e.g. after the application clock moved ahead of redis.
func (r *redisBackend) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64

	iter := r.client.Scan(ctx, 0, r.prefix+":*", PurgeBatchSize).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		data, err := r.client.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return total, errors.Wrap(err, "redis get")
		}

		var e redisEntry
		if err := msgpack.Unmarshal(data, &e); err != nil || e.ExpiresAt.Before(now) {
			n, err := r.deleteIfUnchanged(ctx, k, data)
			if err != nil {
				return total, err
			}
			total += n
		}
	}
	if err := iter.Err(); err != nil {
		return total, errors.Wrap(err, "redis scan")
	}

	return total, nil
}
