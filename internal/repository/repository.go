package repository

import (
	"context"
	"errors"

	"github.com/mr1hm/disaster-reports/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate key")
)

// AlertFilter selects alerts. Zero values mean "no constraint"; a Limit of 0
// returns every matching row.
type AlertFilter struct {
	Type             *models.AlertType
	Severity         *models.AlertSeverity
	LocationContains string // case-insensitive substring
	Limit            int
	Offset           int
}

type AlertRepository interface {
	CreateAlert(ctx context.Context, a *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	// ListAlerts returns the requested page, newest first, and the number of
	// alerts matching the filter before Limit/Offset are applied.
	ListAlerts(ctx context.Context, f AlertFilter) ([]models.Alert, int, error)
	ListAlertsByAuthor(ctx context.Context, userID string) ([]models.Alert, error)
	UpdateAlertState(ctx context.Context, id string, verified bool, status models.AlertStatus) error
	DeleteAlert(ctx context.Context, id string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// ListUsers pages users newest first. A limit of 0 returns all of them.
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, int, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id string) error
}
