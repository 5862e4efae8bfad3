package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/joescharf/tracker/internal/models"
)

// sqliteTx implements Tx on top of a *sql.Tx.
type sqliteTx struct {
	tx *sql.Tx
}

var _ Tx = (*sqliteTx)(nil)

// CheckAndAdvance implements the version guard. The UPDATE is conditional on
// the version read at the start, so even without the transaction's write lock
// at most one of two racing callers with the same expected version can win.
func (t *sqliteTx) CheckAndAdvance(ctx context.Context, id int64, expectedVersion int, mutate func(*models.Issue) error) (*models.Issue, error) {
	issue, err := getIssue(ctx, t.tx, id)
	if err != nil {
		return nil, err
	}
	if issue.Version != expectedVersion {
		return nil, &VersionConflictError{IssueID: id, Expected: expectedVersion, Current: issue.Version}
	}

	if err := mutate(issue); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	issue.ID = id
	issue.Version = expectedVersion + 1
	issue.UpdatedAt = now
	issue.MarkResolved(now)

	var resolvedAt sql.NullTime
	if issue.ResolvedAt != nil {
		resolvedAt = sql.NullTime{Time: *issue.ResolvedAt, Valid: true}
	}

	result, err := t.tx.ExecContext(ctx,
		`UPDATE issues SET title=?, description=?, status=?, assignee_id=?, updated_at=?, resolved_at=?, version = version + 1
		WHERE id = ? AND version = ?`,
		issue.Title, issue.Description, string(issue.Status), nullInt64(issue.AssigneeID),
		issue.UpdatedAt, resolvedAt, id, expectedVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("advance issue %d: %w", id, classify(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("advance issue %d: %w", id, err)
	}
	if n == 0 {
		var current int
		if err := t.tx.QueryRowContext(ctx, "SELECT version FROM issues WHERE id = ?", id).Scan(&current); err != nil {
			if err == sql.ErrNoRows {
				return nil, notFound("issue", id)
			}
			return nil, fmt.Errorf("read issue version: %w", classify(err))
		}
		return nil, &VersionConflictError{IssueID: id, Expected: expectedVersion, Current: current}
	}
	return issue, nil
}
