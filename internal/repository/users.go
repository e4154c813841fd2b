package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mr1hm/disaster-reports/internal/models"
)

const userColumns = `id, email, name, password_hash, role, verified, blocked, created_at`

func (s *SQLiteDB) CreateUser(ctx context.Context, u *models.User) error {
	const query = `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		u.ID,
		u.Email,
		u.Name,
		u.PasswordHash,
		string(u.Role),
		boolToInt(u.Verified),
		boolToInt(u.Blocked),
		u.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *SQLiteDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (s *SQLiteDB) getUser(ctx context.Context, query string, arg string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error reading user: %w", err)
	}
	return u, nil
}

func (s *SQLiteDB) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, max(offset, 0))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating users: %w", err)
	}
	return users, total, nil
}

// UpdateUser persists the mutable account fields: name, role, verified and blocked.
func (s *SQLiteDB) UpdateUser(ctx context.Context, u *models.User) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, role = ?, verified = ?, blocked = ? WHERE id = ?`,
		u.Name, string(u.Role), boolToInt(u.Verified), boolToInt(u.Blocked), u.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	return expectAffected(result)
}

func (s *SQLiteDB) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	return expectAffected(result)
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u         models.User
		role      string
		createdAt int64
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&role,
		&u.Verified,
		&u.Blocked,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	u.CreatedAt = time.Unix(0, createdAt).UTC()
	return &u, nil
}
