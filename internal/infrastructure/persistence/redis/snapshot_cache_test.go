package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/testutil"
)

func TestSnapshotCache(t *testing.T) {
	mr, client := testutil.NewTestRedis(t)
	cache := redis.NewSnapshotCache(client, time.Minute)
	ctx := context.Background()

	_, hit, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, hit)

	due := time.Date(2026, 1, 8, 8, 0, 0, 0, time.UTC)
	list := []*borrow.Snapshot{{BorrowID: 1, UserID: 7, TitleID: 3, TitleName: "Clean Code", CopyCode: "X-0001", DueDate: due}}
	require.NoError(t, cache.Set(ctx, 7, list))
	assert.True(t, mr.Exists("borrows:user:7"))
	assert.Equal(t, time.Minute, mr.TTL("borrows:user:7"))

	got, hit, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 1)
	assert.Equal(t, "Clean Code", got[0].TitleName)
	assert.True(t, due.Equal(got[0].DueDate))

	require.NoError(t, cache.Invalidate(ctx, 7))
	_, hit, err = cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestSnapshotCache_EmptyListIsAHit(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	cache := redis.NewSnapshotCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, 9, nil))
	got, hit, err := cache.Get(ctx, 9)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Empty(t, got)
}

func TestSnapshotCache_CorruptValueTreatedAsMiss(t *testing.T) {
	mr, client := testutil.NewTestRedis(t)
	cache := redis.NewSnapshotCache(client, time.Minute)

	require.NoError(t, mr.Set("borrows:user:5", "{not json"))
	_, hit, err := cache.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestSessionStore_Blacklist(t *testing.T) {
	mr, client := testutil.NewTestRedis(t)
	store := redis.NewSessionStore(client)
	ctx := context.Background()

	blocked, err := store.IsInBlacklist(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, store.AddToBlacklist(ctx, "token-a", time.Hour))
	blocked, err = store.IsInBlacklist(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, blocked)

	mr.FastForward(2 * time.Hour)
	blocked, err = store.IsInBlacklist(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, store.AddToBlacklist(ctx, "expired", 0))
	assert.Empty(t, mr.Keys())
}
