package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joescharf/tracker/internal/models"
)

// --- Users ---

func (s *SQLiteStore) CreateUser(ctx context.Context, u *models.User) error {
	u.CreatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, created_at) VALUES (?, ?, ?)`,
		u.Username, u.Email, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user %q: %w", u.Username, classify(err))
	}
	u.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func getUser(ctx context.Context, q querier, id int64) (*models.User, error) {
	u := &models.User{}
	err := q.QueryRowContext(ctx,
		`SELECT id, username, email, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", classify(err))
	}
	return u, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return getUser(ctx, s.db, id)
}

func (t *sqliteTx) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return getUser(ctx, t.tx, id)
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, created_at FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", username)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", classify(err))
	}
	return u, nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username, email, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", classify(err))
	}
	defer func() { _ = rows.Close() }()

	users := []*models.User{}
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteUser removes a user. Issues they reported and comments they wrote are
// deleted; assignments and history actor references are set to NULL.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", classify(err))
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("user", id)
	}
	return nil
}
