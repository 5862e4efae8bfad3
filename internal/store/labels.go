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

// --- Labels ---

func (s *SQLiteStore) CreateLabel(ctx context.Context, l *models.Label) error {
	l.CreatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO labels (name, created_at) VALUES (?, ?)`, l.Name, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("create label %q: %w", l.Name, classify(err))
	}
	l.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create label: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetLabel(ctx context.Context, id int64) (*models.Label, error) {
	l := &models.Label{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM labels WHERE id = ?`, id,
	).Scan(&l.ID, &l.Name, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("label", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get label: %w", classify(err))
	}
	return l, nil
}

// ListLabels returns labels ordered by name, optionally filtered to names
// containing search.
func (s *SQLiteStore) ListLabels(ctx context.Context, search string) ([]*models.Label, error) {
	query := "SELECT id, name, created_at FROM labels"
	var args []any
	if search = strings.TrimSpace(search); search != "" {
		query += " WHERE instr(lower(name), lower(?)) > 0"
		args = append(args, search)
	}
	query += " ORDER BY name"
	return queryLabels(ctx, s.db, query, args...)
}

func (s *SQLiteStore) RenameLabel(ctx context.Context, id int64, name string) (*models.Label, error) {
	result, err := s.db.ExecContext(ctx, "UPDATE labels SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return nil, fmt.Errorf("rename label: %w", classify(err))
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return nil, notFound("label", id)
	}
	return s.GetLabel(ctx, id)
}

// DeleteLabel removes a label and detaches it from every issue. The issues
// themselves are untouched.
func (s *SQLiteStore) DeleteLabel(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM labels WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete label: %w", classify(err))
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("label", id)
	}
	return nil
}

func queryLabels(ctx context.Context, q querier, query string, args ...any) ([]*models.Label, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", classify(err))
	}
	defer func() { _ = rows.Close() }()

	labels := []*models.Label{}
	for rows.Next() {
		l := &models.Label{}
		if err := rows.Scan(&l.ID, &l.Name, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// --- Labels (transactional) ---

func (t *sqliteTx) GetLabelsByID(ctx context.Context, ids []int64) ([]*models.Label, error) {
	if len(ids) == 0 {
		return []*models.Label{}, nil
	}
	marks, args := placeholders(ids)
	return queryLabels(ctx, t.tx,
		"SELECT id, name, created_at FROM labels WHERE id IN ("+marks+") ORDER BY name, id", args...)
}

func (t *sqliteTx) GetIssueLabels(ctx context.Context, issueID int64) ([]*models.Label, error) {
	return queryLabels(ctx, t.tx,
		`SELECT l.id, l.name, l.created_at FROM labels l
		JOIN issue_labels il ON l.id = il.label_id
		WHERE il.issue_id = ? ORDER BY l.name, l.id`, issueID)
}

// SetIssueLabels replaces the issue's whole label set.
func (t *sqliteTx) SetIssueLabels(ctx context.Context, issueID int64, labelIDs []int64) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM issue_labels WHERE issue_id = ?", issueID); err != nil {
		return fmt.Errorf("clear issue labels: %w", classify(err))
	}
	for _, labelID := range labelIDs {
		if _, err := t.tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO issue_labels (issue_id, label_id) VALUES (?, ?)", issueID, labelID); err != nil {
			return fmt.Errorf("label issue: %w", classify(err))
		}
	}
	return nil
}
