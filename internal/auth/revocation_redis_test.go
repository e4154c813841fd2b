package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisRevoker(t *testing.T) (*RedisRevoker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := NewRedisRevoker(mr.Addr(), "", 0)
	t.Cleanup(func() { r.Close() })
	require.NoError(t, r.Ping(context.Background()))
	return r, mr
}

func TestRedisRevoker_RevokeAndRestore(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedisRevoker(t)

	revoked, err := r.IsRevoked(ctx, "jti-1", "user-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.RevokeToken(ctx, "jti-1", time.Minute))
	assert.True(t, mr.Exists(revokedTokenPrefix+"jti-1"))
	assert.Equal(t, time.Minute, mr.TTL(revokedTokenPrefix+"jti-1"))

	revoked, err = r.IsRevoked(ctx, "jti-1", "user-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	revoked, _ = r.IsRevoked(ctx, "jti-2", "user-1")
	assert.False(t, revoked)

	require.NoError(t, r.RevokeUser(ctx, "user-2", time.Hour))
	revoked, err = r.IsRevoked(ctx, "any", "user-2")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, r.RestoreUser(ctx, "user-2"))
	assert.False(t, mr.Exists(revokedUserPrefix+"user-2"))
	revoked, err = r.IsRevoked(ctx, "any", "user-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevoker_ZeroTTLTokenIsIgnored(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedisRevoker(t)

	require.NoError(t, r.RevokeToken(ctx, "expired", 0))
	assert.False(t, mr.Exists(revokedTokenPrefix+"expired"))
}

func TestRedisRevoker_Expires(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedisRevoker(t)

	require.NoError(t, r.RevokeToken(ctx, "short", time.Minute))
	require.NoError(t, r.RevokeUser(ctx, "user-3", time.Minute))

	mr.FastForward(2 * time.Minute)

	revoked, err := r.IsRevoked(ctx, "short", "user-1")
	require.NoError(t, err)
	assert.False(t, revoked)
	revoked, err = r.IsRevoked(ctx, "any", "user-3")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevoker_LookupFailure(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedisRevoker(t)

	require.NoError(t, r.RevokeToken(ctx, "jti-1", time.Minute))
	mr.Close()

	revoked, err := r.IsRevoked(ctx, "jti-1", "user-1")
	assert.Error(t, err)
	assert.False(t, revoked)

	assert.Error(t, r.RevokeUser(ctx, "user-1", time.Minute))
	assert.Error(t, r.RestoreUser(ctx, "user-1"))
}
