package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mr1hm/disaster-reports/internal/models"
)

const alertColumns = `id, location, type, severity, message, timestamp, status, verified,
	created_by_id, created_by_email, created_by_name, created_by_verified`

func (s *SQLiteDB) CreateAlert(ctx context.Context, a *models.Alert) error {
	const query = `INSERT INTO alerts (` + alertColumns + `, location_folded) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		a.ID,
		a.Location,
		string(a.Type),
		string(a.Severity),
		a.Message,
		a.Timestamp.UnixNano(),
		string(a.Status),
		boolToInt(a.Verified),
		a.CreatedBy.ID,
		a.CreatedBy.Email,
		a.CreatedBy.Name,
		boolToInt(a.CreatedBy.Verified),
		foldLocation(a.Location),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("error inserting alert: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error reading alert: %w", err)
	}
	return a, nil
}

func (s *SQLiteDB) ListAlerts(ctx context.Context, f AlertFilter) ([]models.Alert, int, error) {
	var (
		conds []string
		args  []any
	)
	if f.Type != nil {
		conds = append(conds, "type = ?")
		args = append(args, string(*f.Type))
	}
	if f.Severity != nil {
		conds = append(conds, "severity = ?")
		args = append(args, string(*f.Severity))
	}
	if loc := strings.TrimSpace(f.LocationContains); loc != "" {
		conds = append(conds, "instr(location_folded, ?) > 0")
		args = append(args, foldLocation(loc))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting alerts: %w", err)
	}

	query := `SELECT ` + alertColumns + ` FROM alerts` + where + ` ORDER BY timestamp DESC, id DESC`
	pageArgs := append([]any{}, args...)
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		pageArgs = append(pageArgs, f.Limit, max(f.Offset, 0))
	} else if f.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		pageArgs = append(pageArgs, f.Offset)
	}

	alerts, err := s.queryAlerts(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

func (s *SQLiteDB) ListAlertsByAuthor(ctx context.Context, userID string) ([]models.Alert, error) {
	return s.queryAlerts(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE created_by_id = ? ORDER BY timestamp DESC, id DESC`,
		userID,
	)
}

func (s *SQLiteDB) UpdateAlertState(ctx context.Context, id string, verified bool, status models.AlertStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET verified = ?, status = ? WHERE id = ?`,
		boolToInt(verified), string(status), id,
	)
	if err != nil {
		return fmt.Errorf("error updating alert: %w", err)
	}
	return expectAffected(result)
}

func (s *SQLiteDB) DeleteAlert(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM alerts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting alert: %w", err)
	}
	return expectAffected(result)
}

func (s *SQLiteDB) queryAlerts(ctx context.Context, query string, args ...any) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]models.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return alerts, nil
}

// foldLocation lowercases with Unicode rules. SQLite's lower() only folds
// ASCII, so matching happens against this precomputed column instead.
func foldLocation(loc string) string {
	return strings.ToLower(loc)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(row scanner) (*models.Alert, error) {
	var (
		a                  models.Alert
		typ, sev, status   string
		ts                 int64
		verified, byVerify bool
	)
	err := row.Scan(
		&a.ID,
		&a.Location,
		&typ,
		&sev,
		&a.Message,
		&ts,
		&status,
		&verified,
		&a.CreatedBy.ID,
		&a.CreatedBy.Email,
		&a.CreatedBy.Name,
		&byVerify,
	)
	if err != nil {
		return nil, err
	}
	a.Type = models.AlertType(typ)
	a.Severity = models.AlertSeverity(sev)
	a.Status = models.AlertStatus(status)
	a.Timestamp = time.Unix(0, ts).UTC()
	a.Verified = verified
	a.CreatedBy.Verified = byVerify
	return &a, nil
}

func expectAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
