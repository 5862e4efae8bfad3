package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/joescharf/tracker/internal/models"
)

// --- History ---

// ListHistory returns an issue's events newest first, or oldest first when
// ascending is set. The id tiebreak orders events written in the same instant.
func (s *SQLiteStore) ListHistory(ctx context.Context, issueID int64, ascending bool) ([]*models.HistoryEvent, error) {
	order := "timestamp DESC, id DESC"
	if ascending {
		order = "timestamp ASC, id ASC"
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, issue_id, change_type, changed_by, old_value, new_value, timestamp
		FROM issue_history WHERE issue_id = ? ORDER BY `+order, issueID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", classify(err))
	}
	defer func() { _ = rows.Close() }()

	events := []*models.HistoryEvent{}
	for rows.Next() {
		e := &models.HistoryEvent{}
		var changeType string
		var changedBy sql.NullInt64
		var oldValue, newValue sql.NullString
		if err := rows.Scan(&e.ID, &e.IssueID, &changeType, &changedBy, &oldValue, &newValue, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history event: %w", err)
		}
		e.ChangeType = models.ChangeType(changeType)
		e.ChangedBy = int64Ptr(changedBy)
		e.OldValue = stringPtr(oldValue)
		e.NewValue = stringPtr(newValue)
		events = append(events, e)
	}
	return events, rows.Err()
}

// AppendHistory inserts one immutable history event.
func (t *sqliteTx) AppendHistory(ctx context.Context, e *models.HistoryEvent) error {
	e.Timestamp = time.Now().UTC()
	result, err := t.tx.ExecContext(ctx,
		`INSERT INTO issue_history (issue_id, change_type, changed_by, old_value, new_value, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.IssueID, string(e.ChangeType), nullInt64(e.ChangedBy), nullString(e.OldValue), nullString(e.NewValue), e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", classify(err))
	}
	e.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}
