package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

const (
	revokedTokenPrefix = "revoked:token:"
	revokedUserPrefix  = "revoked:user:"
)

// Revoker tracks tokens and users whose bearer tokens must be refused even
// though the signature is still valid. Entries only need to outlive the
// longest token TTL.
type Revoker interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error
	RestoreUser(ctx context.Context, userID string) error
	IsRevoked(ctx context.Context, tokenID, userID string) (bool, error)
}

// MemoryRevoker keeps the revocation list in process.
type MemoryRevoker struct {
	cache *gocache.Cache
}

var _ Revoker = (*MemoryRevoker)(nil)

func NewMemoryRevoker(cleanupInterval time.Duration) *MemoryRevoker {
	return &MemoryRevoker{
		cache: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (m *MemoryRevoker) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.cache.Set(revokedTokenPrefix+tokenID, struct{}{}, ttl)
	return nil
}

func (m *MemoryRevoker) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	m.cache.Set(revokedUserPrefix+userID, struct{}{}, ttl)
	return nil
}

func (m *MemoryRevoker) RestoreUser(ctx context.Context, userID string) error {
	m.cache.Delete(revokedUserPrefix + userID)
	return nil
}

func (m *MemoryRevoker) IsRevoked(ctx context.Context, tokenID, userID string) (bool, error) {
	if _, found := m.cache.Get(revokedUserPrefix + userID); found {
		return true, nil
	}
	_, found := m.cache.Get(revokedTokenPrefix + tokenID)
	return found, nil
}

// RedisRevoker shares the revocation list between instances. Unlike a cache,
// lookup failures are reported so callers can refuse the request.
type RedisRevoker struct {
	client *redis.Client
}

var _ Revoker = (*RedisRevoker)(nil)

func NewRedisRevoker(addr, password string, db int) *RedisRevoker {
	return &RedisRevoker{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (r *RedisRevoker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRevoker) Close() error {
	return r.client.Close()
}

func (r *RedisRevoker) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedTokenPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevoker) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, revokedUserPrefix+userID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke user: %w", err)
	}
	return nil
}

func (r *RedisRevoker) RestoreUser(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, revokedUserPrefix+userID).Err(); err != nil {
		return fmt.Errorf("restore user: %w", err)
	}
	return nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID, userID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedUserPrefix+userID, revokedTokenPrefix+tokenID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}
