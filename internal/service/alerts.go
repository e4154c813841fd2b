package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/disaster-reports/internal/apperr"
	"github.com/mr1hm/disaster-reports/internal/metrics"
	"github.com/mr1hm/disaster-reports/internal/models"
	"github.com/mr1hm/disaster-reports/internal/repository"
)

// SubmitAlertRequest is the user-supplied part of a new alert.
type SubmitAlertRequest struct {
	Location string `json:"location" validate:"required,max=200"`
	Type     string `json:"type" validate:"required,alert_type"`
	Severity string `json:"severity" validate:"required,severity"`
	Message  string `json:"message" validate:"required,notblank,min=20,max=2000"`
}

type AlertService struct {
	alerts  repository.AlertRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewAlertService(alerts repository.AlertRepository, m *metrics.Metrics) *AlertService {
	return &AlertService{
		alerts:  alerts,
		metrics: m,
		now:     time.Now,
	}
}

// Submit validates req and stores it as a new, unverified alert authored by id.
func (s *AlertService) Submit(ctx context.Context, id *models.Identity, req SubmitAlertRequest) (*models.Alert, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	req.Location = strings.TrimSpace(req.Location)
	req.Type = strings.TrimSpace(req.Type)
	req.Severity = strings.TrimSpace(req.Severity)
	if err := validationError("invalid alert", req); err != nil {
		return nil, err
	}

	alert := &models.Alert{
		ID:        uuid.NewString(),
		Location:  req.Location,
		Type:      models.AlertType(req.Type),
		Severity:  models.AlertSeverity(req.Severity),
		Message:   req.Message,
		Timestamp: s.now().UTC(),
		Status:    models.AlertStatusNew,
		Verified:  false,
		CreatedBy: id.Author(),
	}

	if err := s.alerts.CreateAlert(ctx, alert); err != nil {
		return nil, apperr.Storage("failed to save alert", err)
	}

	s.metrics.AlertSubmitted(string(alert.Type), string(alert.Severity))
	slog.Info("alert submitted",
		"alert_id", alert.ID,
		"type", alert.Type,
		"severity", alert.Severity,
		"user_id", id.UserID,
	)
	return alert, nil
}
