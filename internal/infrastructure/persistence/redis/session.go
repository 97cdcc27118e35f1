package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// SessionStore 登录会话
// 设计说明:
// 1. JWT本身无状态,登出通过Token黑名单实现
// 2. Key设计:blacklist:{sha256(token)},过期时间等于Token剩余有效期
// 3. 角色变更后按用户吊销:revoked:user:{id}记录吊销时刻,
//    早于该时刻签发的Token一律拒绝,过期时间等于Token最长有效期
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore 创建会话存储
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// AddToBlacklist 将Token加入黑名单
// ttl<=0表示Token已过期,无需记录
func (s *SessionStore) AddToBlacklist(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, blacklistKey(token), "revoked", ttl).Err(); err != nil {
		return apperrors.ErrRedisError.WithCause(err)
	}
	return nil
}

// IsInBlacklist 检查Token是否已登出
func (s *SessionStore) IsInBlacklist(ctx context.Context, token string) (bool, error) {
	exists, err := s.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, apperrors.ErrRedisError.WithCause(err)
	}
	return exists > 0, nil
}

// RevokeUser 使用户在at之前签发的Token全部失效
func (s *SessionStore) RevokeUser(ctx context.Context, userID uint, at time.Time, ttl time.Duration) error {
	if err := s.client.Set(ctx, revokedKey(userID), at.Unix(), ttl).Err(); err != nil {
		return apperrors.ErrRedisError.WithCause(err)
	}
	return nil
}

// RevokedAt 用户的吊销时刻,未吊销返回零值
func (s *SessionStore) RevokedAt(ctx context.Context, userID uint) (time.Time, error) {
	sec, err := s.client.Get(ctx, revokedKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, apperrors.ErrRedisError.WithCause(err)
	}
	return time.Unix(sec, 0), nil
}

func revokedKey(userID uint) string {
	return "revoked:user:" + strconv.FormatUint(uint64(userID), 10)
}

// blacklistKey Token较长,取摘要作为key
func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "blacklist:" + hex.EncodeToString(sum[:])
}
