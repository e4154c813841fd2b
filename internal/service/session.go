package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/disaster-reports/internal/apperr"
	"github.com/mr1hm/disaster-reports/internal/auth"
	"github.com/mr1hm/disaster-reports/internal/metrics"
	"github.com/mr1hm/disaster-reports/internal/models"
	"github.com/mr1hm/disaster-reports/internal/repository"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"max=254"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128,password"`
}

// Session is returned by login and refresh.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

var errInvalidCredentials = apperr.Authentication("invalid email or password")

type SessionService struct {
	users   repository.UserRepository
	tokens  *auth.TokenIssuer
	hasher  *auth.PasswordHasher
	revoker auth.Revoker
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewSessionService(
	users repository.UserRepository,
	tokens *auth.TokenIssuer,
	hasher *auth.PasswordHasher,
	revoker auth.Revoker,
	m *metrics.Metrics,
) *SessionService {
	return &SessionService{
		users:   users,
		tokens:  tokens,
		hasher:  hasher,
		revoker: revoker,
		metrics: m,
		now:     time.Now,
	}
}

// Register creates a regular, unverified account.
func (s *SessionService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req = normalizeRegistration(req)
	if err := validationError("invalid registration", req); err != nil {
		return nil, err
	}

	user, err := s.newUser(req, models.RoleUser, false)
	if err != nil {
		return nil, err
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, apperr.Storage("failed to create user", err)
	}

	slog.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login checks the credentials and issues a token. Blocked accounts are
// refused even with the right password.
func (s *SessionService) Login(ctx context.Context, email, password string) (sess *Session, err error) {
	defer func() { s.metrics.Login(err) }()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, errInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, apperr.Storage("failed to load user", err)
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, errInvalidCredentials
	}
	if user.Blocked {
		return nil, apperr.Authentication("account is blocked")
	}

	return s.issue(user)
}

// Authenticate resolves a bearer token to the caller's identity from the
// token claims alone, refusing revoked tokens.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*models.Identity, error) {
	claims, err := s.verify(ctx, token)
	if err != nil {
		return nil, err
	}
	id := claims.Identity()
	return &id, nil
}

// Me returns the current stored profile behind token.
func (s *SessionService) Me(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.verify(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.activeUser(ctx, claims.Subject)
}

// Refresh swaps a valid token for a new one carrying the user's current
// role and verification state. The old token is revoked.
func (s *SessionService) Refresh(ctx context.Context, token string) (*Session, error) {
	claims, err := s.verify(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.activeUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	sess, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.revoker.RevokeToken(ctx, claims.ID, s.tokens.Remaining(claims)); err != nil {
		return nil, apperr.Storage("failed to revoke token", err)
	}
	return sess, nil
}

func (s *SessionService) Logout(ctx context.Context, token string) error {
	claims, err := s.verify(ctx, token)
	if err != nil {
		return err
	}
	if err := s.revoker.RevokeToken(ctx, claims.ID, s.tokens.Remaining(claims)); err != nil {
		return apperr.Storage("failed to revoke token", err)
	}
	return nil
}

// EnsureAdmin creates the admin account for email, or promotes the existing
// account with that email. The bool reports whether a new account was created.
func (s *SessionService) EnsureAdmin(ctx context.Context, email, password, name string) (*models.User, bool, error) {
	req := normalizeRegistration(RegisterRequest{Name: name, Email: email, Password: password})
	if err := validationError("invalid admin account", req); err != nil {
		return nil, false, err
	}

	existing, err := s.users.GetUserByEmail(ctx, req.Email)
	switch {
	case err == nil:
		if existing.IsAdmin() && existing.Verified && !existing.Blocked {
			return existing, false, nil
		}
		existing.Role = models.RoleAdmin
		existing.Verified = true
		existing.Blocked = false
		if err := s.users.UpdateUser(ctx, existing); err != nil {
			return nil, false, apperr.Storage("failed to promote user", err)
		}
		if err := s.revoker.RestoreUser(ctx, existing.ID); err != nil {
			return nil, false, apperr.Storage("failed to restore sessions", err)
		}
		slog.Info("user promoted to admin", "user_id", existing.ID)
		return existing, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, apperr.Storage("failed to load user", err)
	}

	user, err := s.newUser(req, models.RoleAdmin, true)
	if err != nil {
		return nil, false, err
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, false, apperr.Conflict("email already registered")
		}
		return nil, false, apperr.Storage("failed to create admin", err)
	}

	slog.Info("admin account created", "user_id", user.ID)
	return user, true, nil
}

func (s *SessionService) verify(ctx context.Context, token string) (*auth.Claims, error) {
	if token == "" {
		return nil, apperr.Authentication("missing bearer token")
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperr.Authentication("invalid or expired token")
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID, claims.Subject)
	if err != nil {
		return nil, apperr.Storage("failed to check token", err)
	}
	if revoked {
		return nil, apperr.Authentication("token has been revoked")
	}
	return claims, nil
}

func (s *SessionService) activeUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Authentication("account no longer exists")
		}
		return nil, apperr.Storage("failed to load user", err)
	}
	if user.Blocked {
		return nil, apperr.Authentication("account is blocked")
	}
	return user, nil
}

func (s *SessionService) issue(user *models.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperr.Storage("failed to issue token", err)
	}
	return &Session{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		User:      user,
	}, nil
}

func (s *SessionService) newUser(req RegisterRequest, role models.Role, verified bool) (*models.User, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperr.Storage("failed to hash password", err)
	}
	return &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         role,
		Verified:     verified,
		CreatedAt:    s.now().UTC(),
	}, nil
}

func normalizeRegistration(req RegisterRequest) RegisterRequest {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name = req.Email
	}
	return req
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
