package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/joescharf/tracker/internal/models"
)

// --- Reports ---

// TopAssignees ranks users by number of assigned issues. Ties are broken by
// username, then id, so the ranking is deterministic.
func (s *SQLiteStore) TopAssignees(ctx context.Context, limit int) ([]*models.AssigneeCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.username, COUNT(i.id) AS issue_count
		FROM users u JOIN issues i ON i.assignee_id = u.id
		GROUP BY u.id, u.username
		ORDER BY issue_count DESC, u.username ASC, u.id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("top assignees: %w", classify(err))
	}
	defer func() { _ = rows.Close() }()

	out := []*models.AssigneeCount{}
	for rows.Next() {
		a := &models.AssigneeCount{}
		if err := rows.Scan(&a.AssigneeID, &a.Username, &a.IssueCount); err != nil {
			return nil, fmt.Errorf("scan assignee count: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListIssueTimings returns the status and timestamps of every issue.
func (s *SQLiteStore) ListIssueTimings(ctx context.Context) ([]IssueTiming, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, created_at, resolved_at FROM issues ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list issue timings: %w", classify(err))
	}
	defer func() { _ = rows.Close() }()

	var out []IssueTiming
	for rows.Next() {
		var t IssueTiming
		var status string
		var resolvedAt sql.NullTime
		if err := rows.Scan(&status, &t.CreatedAt, &resolvedAt); err != nil {
			return nil, fmt.Errorf("scan issue timing: %w", err)
		}
		t.Status = models.IssueStatus(status)
		if resolvedAt.Valid {
			t.ResolvedAt = &resolvedAt.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
