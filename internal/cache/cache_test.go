package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mindfork-recommender/internal/common/errors"
)

var (
	baseTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	payload  = []byte(`[{"foodId":"salmon","score":82}]`)
)

func fixedClock(t *time.Time) Clock {
	return func() time.Time { return *t }
}

func TestMemoryTier(t *testing.T) {
	ctx := context.Background()
	now := baseTime
	tier := NewMemoryTier(fixedClock(&now))
	key := Key{Owner: "user-1", Hash: "abc"}

	entry, err := tier.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, tier.Set(ctx, key, payload, now.Add(5*time.Minute)))
	require.NoError(t, tier.Set(ctx, Key{Owner: "user-2", Hash: "abc"}, payload, now.Add(5*time.Minute)))

	entry, err = tier.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, payload, entry.Payload)

	now = now.Add(5 * time.Minute)
	entry, err = tier.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, entry, "entry expires exactly at its deadline")
	assert.Equal(t, 1, tier.Len())

	require.NoError(t, tier.DeleteOwner(ctx, "user-2"))
	assert.Equal(t, 0, tier.Len())
}

func TestMemoryTier_Bounded(t *testing.T) {
	ctx := context.Background()
	now := baseTime
	tier := NewMemoryTierWithLimit(fixedClock(&now), 3)

	for _, hash := range []string{"a", "b", "c"} {
		require.NoError(t, tier.Set(ctx, Key{Owner: "user-1", Hash: hash}, payload, now.Add(time.Minute)))
	}
	assert.Equal(t, 3, tier.Len())

	t.Run("full tier sweeps expired entries first", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		require.NoError(t, tier.Set(ctx, Key{Owner: "user-2", Hash: "d"}, payload, now.Add(time.Minute)))
		assert.Equal(t, 1, tier.Len())
	})

	t.Run("live entries are evicted oldest first", func(t *testing.T) {
		for _, hash := range []string{"e", "f", "g"} {
			require.NoError(t, tier.Set(ctx, Key{Owner: "user-2", Hash: hash}, payload, now.Add(time.Minute)))
		}
		assert.Equal(t, 3, tier.Len())

		entry, err := tier.Get(ctx, Key{Owner: "user-2", Hash: "d"})
		require.NoError(t, err)
		assert.Nil(t, entry)
		entry, err = tier.Get(ctx, Key{Owner: "user-2", Hash: "g"})
		require.NoError(t, err)
		assert.NotNil(t, entry)
	})

	t.Run("overwriting a key does not grow the tier", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			require.NoError(t, tier.Set(ctx, Key{Owner: "user-2", Hash: "g"}, payload, now.Add(time.Minute)))
		}
		assert.Equal(t, 3, tier.Len())
		assert.LessOrEqual(t, len(tier.order), 6)
	})
}

func TestRedisTier_Miniredis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	now := baseTime
	tier := NewRedisTier(client, fixedClock(&now))
	key := Key{Owner: "user-1", Hash: "abc"}

	require.NoError(t, tier.Set(ctx, key, payload, now.Add(5*time.Minute)))
	assert.True(t, mr.Exists("recommendations:user-1:abc"))
	assert.Equal(t, 5*time.Minute, mr.TTL("recommendations:user-1:abc"))

	entry, err := tier.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.JSONEq(t, string(payload), string(entry.Payload))
	assert.True(t, entry.ExpiresAt.Equal(now.Add(5*time.Minute)))

	mr.FastForward(6 * time.Minute)
	entry, err = tier.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestRedisTier_SkipsAlreadyExpired(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	now := baseTime
	tier := NewRedisTier(client, fixedClock(&now))

	require.NoError(t, tier.Set(ctx, Key{Owner: "u", Hash: "h"}, payload, now.Add(-time.Second)))
	assert.False(t, mr.Exists("recommendations:u:h"))
}

func TestRedisTier_DeleteOwner(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	now := baseTime
	tier := NewRedisTier(client, fixedClock(&now))
	for _, hash := range []string{"a", "b", "c"} {
		require.NoError(t, tier.Set(ctx, Key{Owner: "user-1", Hash: hash}, payload, now.Add(time.Minute)))
	}
	require.NoError(t, tier.Set(ctx, Key{Owner: "user-2", Hash: "a"}, payload, now.Add(time.Minute)))

	require.NoError(t, tier.DeleteOwner(ctx, "user-1"))

	assert.False(t, mr.Exists("recommendations:user-1:a"))
	assert.False(t, mr.Exists("recommendations:user-1:c"))
	assert.True(t, mr.Exists("recommendations:user-2:a"))
	assert.False(t, mr.Exists("recommendations-owner:user-1"))
}

func TestRedisTier_DeleteOwnerMatchesExactOwner(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	now := baseTime
	tier := NewRedisTier(client, fixedClock(&now))
	owners := []string{"user-2", "user:9", "user", "*", "user-[12]", `user\2`}
	for _, owner := range owners {
		require.NoError(t, tier.Set(ctx, Key{Owner: owner, Hash: "0123456789abcdef"}, payload, now.Add(time.Minute)))
	}

	tests := []struct {
		owner   string
		removed string
	}{
		{owner: "user-*"},
		{owner: "user-?"},
		{owner: "user", removed: "user"},
		{owner: "*", removed: "*"},
		{owner: "user-[12]", removed: "user-[12]"},
	}

	gone := map[string]bool{}
	for _, tt := range tests {
		t.Run(tt.owner, func(t *testing.T) {
			require.NoError(t, tier.DeleteOwner(ctx, tt.owner))
			if tt.removed != "" {
				gone[tt.removed] = true
			}
			for _, owner := range owners {
				key := "recommendations:" + owner + ":0123456789abcdef"
				assert.Equal(t, !gone[owner], mr.Exists(key), "entry of owner %q after deleting %q", owner, tt.owner)
			}
		})
	}
}

func TestRedisTier_Errors(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	tier := NewRedisTier(client, nil)

	mock.ExpectGet("recommendations:user-1:abc").SetErr(errors.New("connection reset"))
	_, err := tier.Get(ctx, Key{Owner: "user-1", Hash: "abc"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCacheReadFailed))

	mock.ExpectSMembers("recommendations-owner:user-1").SetErr(errors.New("timeout"))
	err = tier.DeleteOwner(ctx, "user-1")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCacheWriteFailed))

	err = tier.Set(ctx, Key{Owner: "user-1", Hash: "abc"}, []byte("not json"), time.Now().Add(time.Minute))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCacheWriteFailed))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTier(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := baseTime
	tier := NewPostgresTier(db, fixedClock(&now))
	key := Key{Owner: "user-1", Hash: "abc"}
	expires := now.Add(5 * time.Minute)

	mock.ExpectExec("INSERT INTO recommendation_cache").
		WithArgs("user-1", "abc", payload, expires, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, tier.Set(ctx, key, payload, expires))

	mock.ExpectQuery("SELECT recommendations, expires_at FROM recommendation_cache").
		WithArgs("user-1", "abc", now).
		WillReturnRows(sqlmock.NewRows([]string{"recommendations", "expires_at"}).AddRow(payload, expires))
	entry, err := tier.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, payload, entry.Payload)

	mock.ExpectQuery("SELECT recommendations, expires_at FROM recommendation_cache").
		WithArgs("user-1", "missing", now).
		WillReturnRows(sqlmock.NewRows([]string{"recommendations", "expires_at"}))
	entry, err = tier.Get(ctx, Key{Owner: "user-1", Hash: "missing"})
	require.NoError(t, err)
	assert.Nil(t, entry)

	mock.ExpectExec("DELETE FROM recommendation_cache WHERE user_id").
		WithArgs("user-1").
		WillReturnError(errors.New("deadlock"))
	err = tier.DeleteOwner(ctx, "user-1")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeCacheWriteFailed))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTwoTier_BackfillsLocalFromDurable(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := baseTime
	local := NewMemoryTier(fixedClock(&now))
	cache := NewTwoTier(local, NewPostgresTier(db, fixedClock(&now)), fixedClock(&now))
	key := Key{Owner: "user-1", Hash: "abc"}

	mock.ExpectQuery("SELECT recommendations, expires_at FROM recommendation_cache").
		WithArgs("user-1", "abc", now).
		WillReturnRows(sqlmock.NewRows([]string{"recommendations", "expires_at"}).AddRow(payload, now.Add(time.Minute)))

	entry, tier, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "postgres", tier)

	entry, tier, err = cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "memory", tier)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTwoTier_DurableErrorIsAMiss(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	cache := NewTwoTier(NewMemoryTier(nil), NewRedisTier(client, nil), nil)

	mock.ExpectGet("recommendations:user-1:abc").SetErr(errors.New("down"))
	entry, _, err := cache.Get(ctx, Key{Owner: "user-1", Hash: "abc"})
	assert.Nil(t, entry)
	assert.Error(t, err)
}

func TestTwoTier_LocalOnly(t *testing.T) {
	ctx := context.Background()
	now := baseTime
	cache := NewTwoTier(NewMemoryTier(fixedClock(&now)), nil, fixedClock(&now))
	key := Key{Owner: "user-1", Hash: "abc"}

	require.NoError(t, cache.Set(ctx, key, payload, 5*time.Minute))
	entry, _, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, entry)

	require.NoError(t, cache.InvalidateOwner(ctx, "user-1"))
	entry, _, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, entry)
}
