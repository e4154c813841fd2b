package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mr1hm/disaster-reports/internal/apperr"
	"github.com/mr1hm/disaster-reports/internal/auth"
	"github.com/mr1hm/disaster-reports/internal/metrics"
	"github.com/mr1hm/disaster-reports/internal/models"
	"github.com/mr1hm/disaster-reports/internal/repository"
	"github.com/mr1hm/disaster-reports/internal/worker"
)

type UserPage struct {
	Users  []models.User `json:"users"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type DeleteUserResult struct {
	UserID        string `json:"userId"`
	AlertsDeleted int    `json:"alertsDeleted"`
}

type ModerationConfig struct {
	// RevokeFor is how long a user-wide revocation is kept. It must cover
	// the token TTL.
	RevokeFor      time.Duration
	CascadeWorkers int
	Limits         PageLimits
}

// ModerationService implements the admin-only operations. Every method
// checks the caller's role before touching the store.
type ModerationService struct {
	alerts  repository.AlertRepository
	users   repository.UserRepository
	revoker auth.Revoker
	metrics *metrics.Metrics
	cfg     ModerationConfig
}

func NewModerationService(
	alerts repository.AlertRepository,
	users repository.UserRepository,
	revoker auth.Revoker,
	m *metrics.Metrics,
	cfg ModerationConfig,
) *ModerationService {
	if cfg.CascadeWorkers < 1 {
		cfg.CascadeWorkers = 1
	}
	if cfg.Limits == (PageLimits{}) {
		cfg.Limits = DefaultPageLimits
	}
	return &ModerationService{
		alerts:  alerts,
		users:   users,
		revoker: revoker,
		metrics: m,
		cfg:     cfg,
	}
}

func (s *ModerationService) VerifyAlert(ctx context.Context, id *models.Identity, alertID string) (a *models.Alert, err error) {
	defer func() { s.metrics.Moderation("verify_alert", err) }()

	if err := s.check(id, "alertId", alertID); err != nil {
		return nil, err
	}

	alert, err := s.alerts.GetAlert(ctx, alertID)
	if err != nil {
		return nil, notFoundOr(err, "alert", alertID)
	}
	if alert.Verified && alert.Status == models.AlertStatusActive {
		return alert, nil
	}

	if err := s.alerts.UpdateAlertState(ctx, alertID, true, models.AlertStatusActive); err != nil {
		return nil, notFoundOr(err, "alert", alertID)
	}
	alert.Verified = true
	alert.Status = models.AlertStatusActive

	slog.Info("alert verified", "admin_id", id.UserID, "alert_id", alertID)
	return alert, nil
}

func (s *ModerationService) DeleteAlert(ctx context.Context, id *models.Identity, alertID, reason string) (err error) {
	defer func() { s.metrics.Moderation("delete_alert", err) }()

	if err := s.check(id, "alertId", alertID); err != nil {
		return err
	}

	if err := s.alerts.DeleteAlert(ctx, alertID); err != nil {
		return notFoundOr(err, "alert", alertID)
	}

	slog.Info("alert deleted", "admin_id", id.UserID, "alert_id", alertID, "reason", reason)
	return nil
}

func (s *ModerationService) VerifyUser(ctx context.Context, id *models.Identity, userID string) (u *models.User, err error) {
	defer func() { s.metrics.Moderation("verify_user", err) }()

	if err := s.check(id, "userId", userID); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", userID)
	}
	if user.Verified {
		return user, nil
	}

	user.Verified = true
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, notFoundOr(err, "user", userID)
	}

	slog.Info("user verified", "admin_id", id.UserID, "user_id", userID)
	return user, nil
}

// BlockUser marks the user blocked and revokes every token issued to them.
// Admin accounts cannot be blocked.
func (s *ModerationService) BlockUser(ctx context.Context, id *models.Identity, userID, reason string) (u *models.User, err error) {
	defer func() { s.metrics.Moderation("block_user", err) }()

	if err := s.check(id, "userId", userID); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", userID)
	}
	if user.IsAdmin() {
		return nil, apperr.ForbiddenTransition("admin accounts cannot be blocked")
	}

	if !user.Blocked {
		user.Blocked = true
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return nil, notFoundOr(err, "user", userID)
		}
	}
	if err := s.revoker.RevokeUser(ctx, userID, s.cfg.RevokeFor); err != nil {
		return nil, apperr.Storage("failed to revoke sessions", err)
	}

	slog.Info("user blocked", "admin_id", id.UserID, "user_id", userID, "reason", reason)
	return user, nil
}

func (s *ModerationService) UnblockUser(ctx context.Context, id *models.Identity, userID string) (u *models.User, err error) {
	defer func() { s.metrics.Moderation("unblock_user", err) }()

	if err := s.check(id, "userId", userID); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", userID)
	}

	if user.Blocked {
		user.Blocked = false
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return nil, notFoundOr(err, "user", userID)
		}
	}
	if err := s.revoker.RestoreUser(ctx, userID); err != nil {
		return nil, apperr.Storage("failed to restore sessions", err)
	}

	slog.Info("user unblocked", "admin_id", id.UserID, "user_id", userID)
	return user, nil
}

// DeleteUser removes a user together with every alert they authored. The
// user is blocked and its tokens revoked first, then the alerts are deleted
// concurrently. The user record is only removed once all of its alerts are
// gone; otherwise it stays blocked, a PartialFailure error lists the alert
// ids that remain, and the call can be retried.
func (s *ModerationService) DeleteUser(ctx context.Context, id *models.Identity, userID string) (res *DeleteUserResult, err error) {
	defer func() { s.metrics.Moderation("delete_user", err) }()

	if err := s.check(id, "userId", userID); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", userID)
	}
	if user.IsAdmin() {
		return nil, apperr.ForbiddenTransition("admin accounts cannot be deleted")
	}

	// Block first so a user kept by an incomplete cascade cannot log in
	// again while its tokens are revoked.
	if !user.Blocked {
		user.Blocked = true
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return nil, notFoundOr(err, "user", userID)
		}
	}
	if err := s.revoker.RevokeUser(ctx, userID, s.cfg.RevokeFor); err != nil {
		return nil, apperr.Storage("failed to revoke sessions", err)
	}

	alerts, err := s.alerts.ListAlertsByAuthor(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("failed to list user alerts", err)
	}

	jobs := make([]worker.Job, len(alerts))
	for i, a := range alerts {
		jobs[i] = a.ID
	}
	failures := worker.Run(ctx, s.cfg.CascadeWorkers, jobs, func(ctx context.Context, job worker.Job) error {
		err := s.alerts.DeleteAlert(ctx, job.(string))
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	})

	if len(failures) > 0 {
		pending := make([]string, len(failures))
		errs := make([]error, len(failures))
		for i, f := range failures {
			pending[i] = f.Job.(string)
			errs[i] = fmt.Errorf("alert %s: %w", pending[i], f.Err)
		}
		sort.Strings(pending)

		slog.Error("user cascade incomplete",
			"admin_id", id.UserID,
			"user_id", userID,
			"pending", len(pending),
			"error", errors.Join(errs...),
		)
		return nil, apperr.PartialFailure("some alerts could not be deleted; user kept", pending, errors.Join(errs...))
	}

	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return nil, notFoundOr(err, "user", userID)
	}

	slog.Info("user deleted",
		"admin_id", id.UserID,
		"user_id", userID,
		"alerts_deleted", len(alerts),
	)
	return &DeleteUserResult{UserID: userID, AlertsDeleted: len(alerts)}, nil
}

// ListUsers pages every account, newest first.
func (s *ModerationService) ListUsers(ctx context.Context, id *models.Identity, p Page) (*UserPage, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}

	p = s.cfg.Limits.normalize(p)
	users, total, err := s.users.ListUsers(ctx, p.Limit, p.Offset)
	if err != nil {
		return nil, apperr.Storage("failed to list users", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return &UserPage{Users: users, Total: total, Limit: p.Limit, Offset: p.Offset}, nil
}

func (s *ModerationService) check(id *models.Identity, field, target string) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	return requireID(field, target)
}
