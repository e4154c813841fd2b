package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/disaster-reports/internal/apperr"
	"github.com/mr1hm/disaster-reports/internal/models"
	"github.com/mr1hm/disaster-reports/internal/repository"
)

// flakyAlerts fails deletes for a fixed set of alert ids.
type flakyAlerts struct {
	repository.AlertRepository
	fail map[string]bool
}

func (f *flakyAlerts) DeleteAlert(ctx context.Context, id string) error {
	if f.fail[id] {
		return errors.New("disk I/O error")
	}
	return f.AlertRepository.DeleteAlert(ctx, id)
}

func TestVerifyAlert_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.createUser(t, "admin@example.com", models.RoleAdmin)
	user := f.createUser(t, "reporter@example.com", models.RoleUser)

	alert, err := f.alerts.Submit(ctx, identity(user), validAlert())
	require.NoError(t, err)

	first, err := f.moderation.VerifyAlert(ctx, identity(admin), alert.ID)
	require.NoError(t, err)
	assert.True(t, first.Verified)
	assert.Equal(t, models.AlertStatusActive, first.Status)

	second, err := f.moderation.VerifyAlert(ctx, identity(admin), alert.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stored, err := f.query.Get(ctx, alert.ID)
	require.NoError(t, err)
	assert.True(t, stored.Verified)
	assert.Equal(t, alert.Message, stored.Message, "only verification fields change")
}

func TestVerifyAlert_NotFound(t *testing.T) {
	f := newFixture(t)
	admin := f.createUser(t, "admin@example.com", models.RoleAdmin)

	_, err := f.moderation.VerifyAlert(context.Background(), identity(admin), "missing")
	assertKind(t, err, apperr.KindNotFound)
}

func TestDeleteAlert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.createUser(t, "admin@example.com", models.RoleAdmin)
	user := f.createUser(t, "reporter@example.com", models.RoleUser)

	alert, err := f.alerts.Submit(ctx, identity(user), validAlert())
	require.NoError(t, err)

	require.NoError(t, f.moderation.DeleteAlert(ctx, identity(admin), alert.ID, "duplicate report"))

	_, err = f.query.Get(ctx, alert.ID)
	assertKind(t, err, apperr.KindNotFound)

	err = f.moderation.DeleteAlert(ctx, identity(admin), alert.ID, "again")
	assertKind(t, err, apperr.KindNotFound)
}

func TestModeration_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "reporter@example.com", models.RoleUser)
	other := f.createUser(t, "other@example.com", models.RoleUser)

	alert, err := f.alerts.Submit(ctx, identity(other), validAlert())
	require.NoError(t, err)

	caller := identity(user)
	calls := map[string]func() error{
		"verifyAlert": func() error { _, err := f.moderation.VerifyAlert(ctx, caller, alert.ID); return err },
		"deleteAlert": func() error { return f.moderation.DeleteAlert(ctx, caller, alert.ID, "spam") },
		"verifyUser":  func() error { _, err := f.moderation.VerifyUser(ctx, caller, other.ID); return err },
		"blockUser":   func() error { _, err := f.moderation.BlockUser(ctx, caller, other.ID, "spam"); return err },
		"unblockUser": func() error { _, err := f.moderation.UnblockUser(ctx, caller, other.ID); return err },
		"deleteUser":  func() error { _, err := f.moderation.DeleteUser(ctx, caller, other.ID); return err },
		"listUsers":   func() error { _, err := f.moderation.ListUsers(ctx, caller, Page{}); return err },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			assertKind(t, call(), apperr.KindAuthorization)
		})
	}

	stored, err := f.query.Get(ctx, alert.ID)
	require.NoError(t, err)
	assert.False(t, stored.Verified)
	assert.Equal(t, models.AlertStatusNew, stored.Status)

	target, err := f.db.GetUser(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, target.Verified)
	assert.False(t, target.Blocked)

	_, err = f.moderation.VerifyAlert(ctx, nil, alert.ID)
	assertKind(t, err, apperr.KindAuthentication)
}

func TestModeration_AuthorizationBeforeValidation(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "reporter@example.com", models.RoleUser)
	admin := f.createUser(t, "admin@example.com", models.RoleAdmin)

	_, err := f.moderation.VerifyUser(context.Background(), identity(user), "")
	assertKind(t, err, apperr.KindAuthorization)

	_, err = f.moderation.VerifyUser(context.Background(), identity(admin), "")
	assertKind(t, err, apperr.KindValidation)
}

func TestVerifyUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.createUser(t, "admin@example.com", models.RoleAdmin)
	user := f.createUser(t, "reporter@example.com", models.RoleUser)

	got, err := f.moderation.VerifyUser(ctx, identity(admin), user.ID)
	require.NoError(t, err)
	assert.True(t, got.Verified)

	again, err := f.moderation.VerifyUser(ctx, identity(admin), user.ID)
	require.NoError(t, err)
	assert.True(t, again.Verified)

	_, err = f.moderation.VerifyUser(ctx, identity(admin), "missing")
	assertKind(t, err, apperr.KindNotFound)
}

func TestBlockUser_LoginFailsAndTokensRevoked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.createUser(t, "admin@example.com", models.RoleAdmin)
	user := f.createUser(t, "reporter@example.com", models.RoleUser)

	sess, err := f.sessions.Login(ctx, user.Email, "password123")
	require.NoError(t, err)

	blocked, err := f.moderation.BlockUser(ctx, identity(admin), user.ID, "abusive reports")
	require.NoError(t, err)
	assert.True(t, blocked.Blocked)

	_, err = f.sessions.Login(ctx, user.Email, "password123")
	assertKind(t, err, apperr.KindAuthentication)

	_, err = f.sessions.Authenticate(ctx, sess.Token)
	assertKind(t, err, apperr.KindAuthentication)

	unblocked, err := f.moderation.UnblockUser(ctx, identity(admin), user.ID)
	require.NoError(t, err)
	assert.False(t, unblocked.Blocked)

	fresh, err := f.sessions.Login(ctx, user.Email, "password123")
	require.NoError(t, err)
	_, err = f.sessions.Authenticate(ctx, fresh.Token)
	assert.NoError(t, err)
}

func TestBlockUser_AdminTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.createUser(t, "admin@example.com", models.RoleAdmin)
	other := f.createUser(t, "root@example.com", models.RoleAdmin)

	_, err := f.moderation.BlockUser(ctx, identity(admin), other.ID, "no")
	assertKind(t, err, apperr.KindForbiddenTransition)

	stored, err := f.db.GetUser(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, stored.Blocked)
}

func TestDeleteUser_AdminTargetDeletesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.createUser(t, "admin@example.com", models.RoleAdmin)
	other := f.createUser(t, "root@example.com", models.RoleAdmin)
	seedAlerts(t, f, other, 2, nil)

	_, err := f.moderation.DeleteUser(ctx, identity(admin), other.ID)
	assertKind(t, err, apperr.KindForbiddenTransition)

	_, err = f.db.GetUser(ctx, other.ID)
	require.NoError(t, err)
	alerts, err := f.db.ListAlertsByAuthor(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
}

func TestDeleteUser_Cascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.createUser(t, "admin@example.com", models.RoleAdmin)
	user := f.createUser(t, "reporter@example.com", models.RoleUser)
	bystander := f.createUser(t, "bystander@example.com", models.RoleUser)

	sess, err := f.sessions.Login(ctx, user.Email, "password123")
	require.NoError(t, err)

	seedAlerts(t, f, user, 3, nil)
	kept := seedAlerts(t, f, bystander, 1, nil)

	res, err := f.moderation.DeleteUser(ctx, identity(admin), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.AlertsDeleted)
	assert.Equal(t, user.ID, res.UserID)

	_, err = f.db.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	remaining, err := f.db.ListAlertsByAuthor(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = f.query.Get(ctx, kept[0].ID)
	assert.NoError(t, err)

	_, err = f.sessions.Authenticate(ctx, sess.Token)
	assertKind(t, err, apperr.KindAuthentication)

	_, err = f.moderation.DeleteUser(ctx, identity(admin), user.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestDeleteUser_PartialFailureKeepsUser(t *testing.T) {
	var flaky *flakyAlerts
	f := newFixtureWithAlerts(t, func(r repository.AlertRepository) repository.AlertRepository {
		flaky = &flakyAlerts{AlertRepository: r, fail: map[string]bool{}}
		return flaky
	})
	ctx := context.Background()
	admin := f.createUser(t, "admin@example.com", models.RoleAdmin)
	user := f.createUser(t, "reporter@example.com", models.RoleUser)

	alerts := seedAlerts(t, f, user, 4, nil)
	flaky.fail[alerts[1].ID] = true
	flaky.fail[alerts[3].ID] = true

	_, err := f.moderation.DeleteUser(ctx, identity(admin), user.ID)
	assertKind(t, err, apperr.KindPartialFailure)

	var perr *apperr.Error
	require.ErrorAs(t, err, &perr)
	assert.ElementsMatch(t, []string{alerts[1].ID, alerts[3].ID}, perr.Pending)

	kept, err := f.db.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, kept.Blocked, "a kept user is left blocked")

	_, err = f.sessions.Login(ctx, user.Email, "password123")
	assertKind(t, err, apperr.KindAuthentication)

	remaining, err := f.db.ListAlertsByAuthor(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)

	// Retrying once the store recovers finishes the job.
	clear(flaky.fail)
	res, err := f.moderation.DeleteUser(ctx, identity(admin), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.AlertsDeleted)
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)
	admin := f.createUser(t, "admin@example.com", models.RoleAdmin)
	f.createUser(t, "a@example.com", models.RoleUser)
	f.createUser(t, "b@example.com", models.RoleUser)

	page, err := f.moderation.ListUsers(context.Background(), identity(admin), Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Users, 2)
	assert.Equal(t, 2, page.Limit)
}
