package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/library/internal/domain/borrow"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// SnapshotCache 借阅人视图缓存
// 教学要点(Cache-Aside):
// 1. 读:先查缓存,未命中由调用方从MySQL投影表重建后回填
// 2. 写:业务事务提交后删除缓存,而不是更新缓存
// 3. 缓存只是加速,任何时候都可以丢弃
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache 创建借阅人视图缓存
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

var _ borrow.SnapshotCache = (*SnapshotCache)(nil)

func snapshotKey(userID uint) string {
	return fmt.Sprintf("borrows:user:%d", userID)
}

// Get 查询缓存
func (c *SnapshotCache) Get(ctx context.Context, userID uint) ([]*borrow.Snapshot, bool, error) {
	raw, err := c.client.Get(ctx, snapshotKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.ErrRedisError.WithCause(err)
	}

	var list []*borrow.Snapshot
	if err := json.Unmarshal(raw, &list); err != nil {
		// 数据损坏按未命中处理,由调用方重建覆盖
		return nil, false, nil
	}
	return list, true, nil
}

// Set 回填缓存
func (c *SnapshotCache) Set(ctx context.Context, userID uint, list []*borrow.Snapshot) error {
	if list == nil {
		list = []*borrow.Snapshot{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return apperrors.Wrap(err, "序列化借阅投影失败")
	}
	if err := c.client.Set(ctx, snapshotKey(userID), raw, c.ttl).Err(); err != nil {
		return apperrors.ErrRedisError.WithCause(err)
	}
	return nil
}

// Invalidate 删除缓存
func (c *SnapshotCache) Invalidate(ctx context.Context, userID uint) error {
	if err := c.client.Del(ctx, snapshotKey(userID)).Err(); err != nil {
		return apperrors.ErrRedisError.WithCause(err)
	}
	return nil
}
