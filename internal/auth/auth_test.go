package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/disaster-reports/internal/models"
)

const testSecret = "test-secret-0123456789"

func testUser() *models.User {
	return &models.User{
		ID:       "user-1",
		Email:    "jane@example.com",
		Name:     "Jane",
		Role:     models.RoleAdmin,
		Verified: true,
	}
}

func TestTokenIssuer_IssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	token, issued, err := issuer.Issue(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, claims.ID)

	id := claims.Identity()
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "jane@example.com", id.Email)
	assert.Equal(t, models.RoleAdmin, id.Role)
	assert.True(t, id.Verified)
	assert.True(t, id.IsAdmin())
	assert.Equal(t, models.IdentityOf(testUser()), id)
}

func TestTokenIssuer_UniqueTokenIDs(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	_, a, err := issuer.Issue(testUser())
	require.NoError(t, err)
	_, b, err := issuer.Issue(testUser())
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Minute)
	issuedAt := time.Now().Add(-2 * time.Hour)
	issuer.now = func() time.Time { return issuedAt }

	token, _, err := issuer.Issue(testUser())
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	token, _, err := NewTokenIssuer(testSecret, time.Hour).Issue(testUser())
	require.NoError(t, err)

	_, err = NewTokenIssuer("another-secret-0123456789", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsNoneAlgorithm(t *testing.T) {
	claims := jwt.RegisteredClaims{
		ID:        "jti",
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenIssuer(testSecret, time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Garbage(t *testing.T) {
	_, err := NewTokenIssuer(testSecret, time.Hour).Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Remaining(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)
	_, claims, err := issuer.Issue(testUser())
	require.NoError(t, err)

	remaining := issuer.Remaining(claims)
	assert.Greater(t, remaining, 59*time.Minute)
	assert.LessOrEqual(t, remaining, time.Hour)
}

func TestPasswordHasher(t *testing.T) {
	hasher := NewPasswordHasher(4)

	hash, err := hasher.Hash("s3cretpass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cretpass", hash)

	assert.True(t, hasher.Verify(hash, "s3cretpass"))
	assert.False(t, hasher.Verify(hash, "wrongpass1"))
	assert.False(t, hasher.Verify("not-a-hash", "s3cretpass"))

	other, err := hasher.Hash("s3cretpass")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "hashes must be salted")
}

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRevoker(time.Minute)

	revoked, err := r.IsRevoked(ctx, "jti-1", "user-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.RevokeToken(ctx, "jti-1", time.Minute))
	revoked, _ = r.IsRevoked(ctx, "jti-1", "user-1")
	assert.True(t, revoked)
	revoked, _ = r.IsRevoked(ctx, "jti-2", "user-1")
	assert.False(t, revoked)

	require.NoError(t, r.RevokeUser(ctx, "user-2", time.Minute))
	revoked, _ = r.IsRevoked(ctx, "any", "user-2")
	assert.True(t, revoked)

	require.NoError(t, r.RestoreUser(ctx, "user-2"))
	revoked, _ = r.IsRevoked(ctx, "any", "user-2")
	assert.False(t, revoked)
}

func TestMemoryRevoker_Expires(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRevoker(time.Minute)

	require.NoError(t, r.RevokeToken(ctx, "short", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	revoked, err := r.IsRevoked(ctx, "short", "user-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}
