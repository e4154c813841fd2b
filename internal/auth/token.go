package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mr1hm/disaster-reports/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims carries enough of the user to build an Identity without a store lookup.
type Claims struct {
	Email    string      `json:"email"`
	Name     string      `json:"name,omitempty"`
	Role     models.Role `json:"role"`
	Verified bool        `json:"verified"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() models.Identity {
	return models.Identity{
		UserID:   c.Subject,
		Email:    c.Email,
		Name:     c.Name,
		Role:     c.Role,
		Verified: c.Verified,
	}
}

// TokenIssuer signs and validates HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed token for u along with its claims.
func (t *TokenIssuer) Issue(u *models.User) (string, *Claims, error) {
	now := t.now()
	id := models.IdentityOf(u)
	claims := &Claims{
		Email:    id.Email,
		Name:     id.Name,
		Role:     id.Role,
		Verified: id.Verified,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, claims, nil
}

// Parse validates signature and expiry and returns the claims.
func (t *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	},
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Remaining reports how long the token behind c stays valid.
func (t *TokenIssuer) Remaining(c *Claims) time.Duration {
	if c.ExpiresAt == nil {
		return t.ttl
	}
	return max(c.ExpiresAt.Sub(t.now()), 0)
}
