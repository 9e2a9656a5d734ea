package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "mindfork-recommender/internal/common/errors"
)

const (
	redisKeyPrefix   = "recommendations"
	redisOwnerPrefix = "recommendations-owner"
)

// RedisTier keeps each entry under recommendations:{owner}:{hash} with a
// native TTL. The stored expiry is still checked so an injected clock wins.
// Every owner has a set of its entry keys under recommendations-owner:{owner};
// invalidation reads that set, so owner ids are never used as SCAN patterns.
type RedisTier struct {
	client redis.Cmdable
	now    Clock
}

type redisEnvelope struct {
	ExpiresAt time.Time       `json:"expiresAt"`
	Payload   json.RawMessage `json:"payload"`
}

func NewRedisTier(client redis.Cmdable, now Clock) *RedisTier {
	return &RedisTier{client: client, now: clockOrNow(now)}
}

func (r *RedisTier) Name() string { return "redis" }

func redisKey(key Key) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, key.Owner, key.Hash)
}

func redisOwnerKey(owner string) string {
	return redisOwnerPrefix + ":" + owner
}

func (r *RedisTier) Get(ctx context.Context, key Key) (*Entry, error) {
	raw, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewCacheReadFailedError(r.Name(), err)
	}

	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, apperrors.NewCacheReadFailedError(r.Name(), err)
	}
	entry := &Entry{Payload: []byte(env.Payload), ExpiresAt: env.ExpiresAt}
	if entry.Expired(r.now()) {
		return nil, nil
	}
	return entry, nil
}

func (r *RedisTier) Set(ctx context.Context, key Key, payload []byte, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if !json.Valid(payload) {
		return apperrors.NewCacheWriteFailedError(r.Name(), fmt.Errorf("payload is not valid JSON"))
	}

	data, err := json.Marshal(redisEnvelope{ExpiresAt: expiresAt.UTC(), Payload: payload})
	if err != nil {
		return apperrors.NewCacheWriteFailedError(r.Name(), err)
	}
	entryKey, ownerKey := redisKey(key), redisOwnerKey(key.Owner)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, entryKey, data, ttl)
		pipe.SAdd(ctx, ownerKey, entryKey)
		pipe.Expire(ctx, ownerKey, ttl)
		return nil
	})
	if err != nil {
		return apperrors.NewCacheWriteFailedError(r.Name(), err)
	}
	return nil
}

// DeleteOwner removes the keys listed in the owner's set, then the set.
func (r *RedisTier) DeleteOwner(ctx context.Context, owner string) error {
	ownerKey := redisOwnerKey(owner)
	keys, err := r.client.SMembers(ctx, ownerKey).Result()
	if err != nil {
		return apperrors.NewCacheWriteFailedError(r.Name(), err)
	}
	if err := r.client.Del(ctx, append(keys, ownerKey)...).Err(); err != nil {
		return apperrors.NewCacheWriteFailedError(r.Name(), err)
	}
	return nil
}
