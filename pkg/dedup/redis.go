package dedup

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix prefixes every fingerprint key.
const RedisKeyPrefix = "resume:processed:"

// Redis keeps fingerprints as keys with a TTL. The value is the file key that was processed.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to addr and pings it.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (store *Redis, err error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()
		err = errors.Wrapf(err, "failed to connect to redis at %s", addr)
		return store, err
	}

	store = &Redis{
		client: client,
		ttl:    ttl,
	}
	return store, err
}

// Seen reports whether the fingerprint key exists.
func (r *Redis) Seen(ctx context.Context, _, fingerprint string) (seen bool, err error) {
	var n int64
	n, err = r.client.Exists(ctx, RedisKeyPrefix+fingerprint).Result()
	if err != nil {
		err = errors.Wrap(err, "redis exists failed")
		return seen, err
	}

	seen = n > 0
	return seen, err
}

// Mark sets the fingerprint key if absent. An existing key keeps its original TTL.
func (r *Redis) Mark(ctx context.Context, fileKey, fingerprint string) (err error) {
	err = r.client.SetNX(ctx, RedisKeyPrefix+fingerprint, fileKey, r.ttl).Err()
	if err != nil {
		err = errors.Wrap(err, "redis setnx failed")
		return err
	}
	return err
}

// Close closes the client.
func (r *Redis) Close() (err error) {
	err = r.client.Close()
	return err
}
