// Package cache keeps read-mostly profile snapshots out of MongoDB.
package cache

import (
	"alcyxob/weight-tracker/internal/domain"
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileCache stores user snapshots by id. Misses are (nil, nil).
type ProfileCache interface {
	Get(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	// Set stores a snapshot unless an invalidation already recorded a newer revision.
	Set(ctx context.Context, user *domain.User) error
	// Invalidate drops the snapshot and refuses later snapshots older than revision.
	Invalidate(ctx context.Context, id primitive.ObjectID, revision int64) error
}

// Deleted is the revision to invalidate with when a user is removed: no snapshot is accepted afterwards.
const Deleted int64 = math.MaxInt64

const defaultTTL = 5 * time.Minute

// Both keys share a hash tag so the scripts stay on one cluster slot.
func profileKey(id primitive.ObjectID) string {
	return "profile:{" + id.Hex() + "}"
}

func revisionFloorKey(id primitive.ObjectID) string {
	return "profile:{" + id.Hex() + "}:rev"
}

// KEYS[1] snapshot, KEYS[2] floor; ARGV[1] payload, ARGV[2] revision, ARGV[3] ttl in ms.
var setScript = redis.NewScript(`
local floor = redis.call('GET', KEYS[2])
if floor and tonumber(floor) > tonumber(ARGV[2]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// KEYS[1] snapshot, KEYS[2] floor; ARGV[1] revision, ARGV[2] ttl in ms.
var invalidateScript = redis.NewScript(`
local floor = redis.call('GET', KEYS[2])
if not floor or tonumber(floor) < tonumber(ARGV[1]) then
	redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
end
redis.call('DEL', KEYS[1])
return 1
`)

type redisProfileCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisProfileCache caches snapshots in Redis for ttl.
func NewRedisProfileCache(rdb *redis.Client, ttl time.Duration) ProfileCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &redisProfileCache{rdb: rdb, ttl: ttl}
}

// NewRedisClient initializes a redis client
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (c *redisProfileCache) Get(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	raw, err := c.rdb.Get(ctx, profileKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// Snapshots carry no password hash; they only serve profile reads.
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *redisProfileCache) Set(ctx context.Context, user *domain.User) error {
	b, err := json.Marshal(user)
	if err != nil {
		return err
	}
	keys := []string{profileKey(user.ID), revisionFloorKey(user.ID)}
	return setScript.Run(ctx, c.rdb, keys, b, user.Revision, c.ttl.Milliseconds()).Err()
}

func (c *redisProfileCache) Invalidate(ctx context.Context, id primitive.ObjectID, revision int64) error {
	keys := []string{profileKey(id), revisionFloorKey(id)}
	return invalidateScript.Run(ctx, c.rdb, keys, revision, c.ttl.Milliseconds()).Err()
}

type noopProfileCache struct{}

// NewNoopProfileCache is used when Redis is not configured.
func NewNoopProfileCache() ProfileCache { return noopProfileCache{} }

func (noopProfileCache) Get(context.Context, primitive.ObjectID) (*domain.User, error) { return nil, nil }
func (noopProfileCache) Set(context.Context, *domain.User) error                       { return nil }
func (noopProfileCache) Invalidate(context.Context, primitive.ObjectID, int64) error   { return nil }
