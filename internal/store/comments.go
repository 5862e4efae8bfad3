package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joescharf/tracker/internal/models"
)

// --- Comments ---

func (s *SQLiteStore) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	c := &models.Comment{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, issue_id, author_id, body, created_at FROM comments WHERE id = ?`, id,
	).Scan(&c.ID, &c.IssueID, &c.AuthorID, &c.Body, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("comment", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", classify(err))
	}
	return c, nil
}

// ListComments returns comments oldest first.
func (s *SQLiteStore) ListComments(ctx context.Context, filter CommentListFilter) ([]*models.Comment, error) {
	query := `SELECT id, issue_id, author_id, body, created_at FROM comments`
	var conditions []string
	var args []any
	if filter.IssueID != 0 {
		conditions = append(conditions, "issue_id = ?")
		args = append(args, filter.IssueID)
	}
	if filter.AuthorID != 0 {
		conditions = append(conditions, "author_id = ?")
		args = append(args, filter.AuthorID)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", classify(err))
	}
	defer func() { _ = rows.Close() }()

	comments := []*models.Comment{}
	for rows.Next() {
		c := &models.Comment{}
		if err := rows.Scan(&c.ID, &c.IssueID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (t *sqliteTx) CreateComment(ctx context.Context, c *models.Comment) error {
	c.CreatedAt = time.Now().UTC()
	result, err := t.tx.ExecContext(ctx,
		`INSERT INTO comments (issue_id, author_id, body, created_at) VALUES (?, ?, ?, ?)`,
		c.IssueID, c.AuthorID, c.Body, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create comment: %w", classify(err))
	}
	c.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}
