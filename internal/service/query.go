package service

import (
	"context"
	"strings"
	"time"

	"github.com/mr1hm/disaster-reports/internal/apperr"
	"github.com/mr1hm/disaster-reports/internal/models"
	"github.com/mr1hm/disaster-reports/internal/repository"
)

// AlertQuery holds the optional listing filters, combined with AND.
type AlertQuery struct {
	Type     string
	Severity string
	Location string
}

type AlertPage struct {
	Alerts []models.Alert `json:"alerts"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type QueryService struct {
	alerts repository.AlertRepository
	users  repository.UserRepository
	limits PageLimits
	now    func() time.Time
}

func NewQueryService(alerts repository.AlertRepository, users repository.UserRepository, limits PageLimits) *QueryService {
	return &QueryService{
		alerts: alerts,
		users:  users,
		limits: limits,
		now:    time.Now,
	}
}

// List returns one page of alerts, newest first. Total counts every alert
// matching q regardless of the page.
func (s *QueryService) List(ctx context.Context, q AlertQuery, p Page) (*AlertPage, error) {
	filter, err := buildFilter(q)
	if err != nil {
		return nil, err
	}

	p = s.limits.normalize(p)
	filter.Limit = p.Limit
	filter.Offset = p.Offset

	alerts, total, err := s.alerts.ListAlerts(ctx, filter)
	if err != nil {
		return nil, apperr.Storage("failed to list alerts", err)
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}

	return &AlertPage{
		Alerts: alerts,
		Total:  total,
		Limit:  p.Limit,
		Offset: p.Offset,
	}, nil
}

func buildFilter(q AlertQuery) (repository.AlertFilter, error) {
	var (
		filter repository.AlertFilter
		fields = map[string]string{}
	)

	if t := strings.TrimSpace(q.Type); t != "" {
		at := models.AlertType(t)
		if at.Valid() {
			filter.Type = &at
		} else {
			fields["type"] = "must be one of " + joinValues(models.AlertTypes)
		}
	}
	if sv := strings.TrimSpace(q.Severity); sv != "" {
		sev := models.AlertSeverity(sv)
		if sev.Valid() {
			filter.Severity = &sev
		} else {
			fields["severity"] = "must be one of " + joinValues(models.AlertSeverities)
		}
	}
	filter.LocationContains = strings.TrimSpace(q.Location)

	if len(fields) > 0 {
		return filter, apperr.Validation("invalid filter", fields)
	}
	return filter, nil
}

func (s *QueryService) Get(ctx context.Context, alertID string) (*models.Alert, error) {
	if err := requireID("alertId", alertID); err != nil {
		return nil, err
	}
	alert, err := s.alerts.GetAlert(ctx, alertID)
	if err != nil {
		return nil, notFoundOr(err, "alert", alertID)
	}
	return alert, nil
}

// Aggregate scans every alert and user and summarises them. Last24h is
// measured back from the time of the call.
func (s *QueryService) Aggregate(ctx context.Context) (*models.Stats, error) {
	alerts, _, err := s.alerts.ListAlerts(ctx, repository.AlertFilter{})
	if err != nil {
		return nil, apperr.Storage("failed to list alerts", err)
	}
	users, _, err := s.users.ListUsers(ctx, 0, 0)
	if err != nil {
		return nil, apperr.Storage("failed to list users", err)
	}

	stats := &models.Stats{
		TotalAlerts: len(alerts),
		BySeverity:  make(map[models.AlertSeverity]int, len(models.AlertSeverities)),
		ByType:      make(map[models.AlertType]int, len(models.AlertTypes)),
		TotalUsers:  len(users),
	}
	for _, sev := range models.AlertSeverities {
		stats.BySeverity[sev] = 0
	}
	for _, t := range models.AlertTypes {
		stats.ByType[t] = 0
	}

	cutoff := s.now().Add(-24 * time.Hour)
	for _, a := range alerts {
		if !a.Verified {
			stats.UnverifiedAlerts++
		}
		stats.BySeverity[a.Severity]++
		stats.ByType[a.Type]++
		if !a.Timestamp.Before(cutoff) {
			stats.Last24h++
		}
	}
	for _, u := range users {
		if u.Verified {
			stats.VerifiedUsers++
		}
		if u.Blocked {
			stats.BlockedUsers++
		}
	}
	return stats, nil
}
