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

const issueColumns = `id, title, description, status, version, reporter_id, assignee_id, created_at, updated_at, resolved_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(sc rowScanner) (*models.Issue, error) {
	issue := &models.Issue{}
	var status string
	var assignee sql.NullInt64
	var resolvedAt sql.NullTime

	if err := sc.Scan(&issue.ID, &issue.Title, &issue.Description, &status, &issue.Version,
		&issue.ReporterID, &assignee, &issue.CreatedAt, &issue.UpdatedAt, &resolvedAt); err != nil {
		return nil, err
	}

	issue.Status = models.IssueStatus(status)
	issue.AssigneeID = int64Ptr(assignee)
	if resolvedAt.Valid {
		issue.ResolvedAt = &resolvedAt.Time
	}
	issue.Labels = []*models.Label{}
	return issue, nil
}

func getIssue(ctx context.Context, q querier, id int64) (*models.Issue, error) {
	issue, err := scanIssue(q.QueryRowContext(ctx,
		`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("issue", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", classify(err))
	}
	if err := loadLabels(ctx, q, []*models.Issue{issue}); err != nil {
		return nil, err
	}
	return issue, nil
}

// loadLabels attaches labels to each issue with one query, ordered by name.
func loadLabels(ctx context.Context, q querier, issues []*models.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	byID := make(map[int64]*models.Issue, len(issues))
	ids := make([]int64, 0, len(issues))
	for _, issue := range issues {
		byID[issue.ID] = issue
		ids = append(ids, issue.ID)
	}

	marks, args := placeholders(ids)
	rows, err := q.QueryContext(ctx,
		`SELECT il.issue_id, l.id, l.name, l.created_at FROM issue_labels il
		JOIN labels l ON l.id = il.label_id
		WHERE il.issue_id IN (`+marks+`) ORDER BY l.name, l.id`, args...)
	if err != nil {
		return fmt.Errorf("load issue labels: %w", classify(err))
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var issueID int64
		l := &models.Label{}
		if err := rows.Scan(&issueID, &l.ID, &l.Name, &l.CreatedAt); err != nil {
			return fmt.Errorf("scan issue label: %w", err)
		}
		if issue, ok := byID[issueID]; ok {
			issue.Labels = append(issue.Labels, l)
		}
	}
	return rows.Err()
}

// --- Issues ---

func (s *SQLiteStore) GetIssue(ctx context.Context, id int64) (*models.Issue, error) {
	return getIssue(ctx, s.db, id)
}

// issueOrderings maps the accepted ordering keys to ORDER BY clauses. The id
// tiebreak keeps paging stable.
var issueOrderings = map[string]string{
	"created_at":  "created_at ASC, id ASC",
	"-created_at": "created_at DESC, id DESC",
	"updated_at":  "updated_at ASC, id ASC",
	"-updated_at": "updated_at DESC, id DESC",
	"status":      "CASE status WHEN 'open' THEN 0 WHEN 'in_progress' THEN 1 WHEN 'resolved' THEN 2 WHEN 'closed' THEN 3 ELSE 4 END ASC, id ASC",
	"-status":     "CASE status WHEN 'open' THEN 0 WHEN 'in_progress' THEN 1 WHEN 'resolved' THEN 2 WHEN 'closed' THEN 3 ELSE 4 END DESC, id DESC",
}

// ValidOrdering reports whether ordering is accepted by ListIssues.
func ValidOrdering(ordering string) bool {
	if ordering == "" {
		return true
	}
	_, ok := issueOrderings[ordering]
	return ok
}

// ListIssues returns one page of issues and the total number matching the
// filter.
func (s *SQLiteStore) ListIssues(ctx context.Context, filter IssueListFilter) ([]*models.Issue, int, error) {
	var conditions []string
	var args []any

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.AssigneeID != 0 {
		conditions = append(conditions, "assignee_id = ?")
		args = append(args, filter.AssigneeID)
	}
	if filter.ReporterID != 0 {
		conditions = append(conditions, "reporter_id = ?")
		args = append(args, filter.ReporterID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		conditions = append(conditions, "(instr(lower(title), lower(?)) > 0 OR instr(lower(description), lower(?)) > 0)")
		args = append(args, search, search)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM issues"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count issues: %w", classify(err))
	}

	order, ok := issueOrderings[filter.Ordering]
	if !ok {
		order = issueOrderings["-created_at"]
	}
	query := `SELECT ` + issueColumns + ` FROM issues` + where + ` ORDER BY ` + order
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list issues: %w", classify(err))
	}
	defer func() { _ = rows.Close() }()

	issues := []*models.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	_ = rows.Close()

	if err := loadLabels(ctx, s.db, issues); err != nil {
		return nil, 0, err
	}
	return issues, total, nil
}

// DeleteIssue removes an issue; its comments, history and label links go
// with it through ON DELETE CASCADE.
func (s *SQLiteStore) DeleteIssue(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM issues WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete issue: %w", classify(err))
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return notFound("issue", id)
	}
	return nil
}

// --- Issues (transactional) ---

func (t *sqliteTx) GetIssue(ctx context.Context, id int64) (*models.Issue, error) {
	return getIssue(ctx, t.tx, id)
}

func (t *sqliteTx) LockIssues(ctx context.Context, ids []int64) ([]*models.Issue, error) {
	if len(ids) == 0 {
		return []*models.Issue{}, nil
	}
	marks, args := placeholders(ids)
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+issueColumns+` FROM issues WHERE id IN (`+marks+`) ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("lock issues: %w", classify(err))
	}
	defer func() { _ = rows.Close() }()

	issues := []*models.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

func (t *sqliteTx) CreateIssue(ctx context.Context, issue *models.Issue) error {
	now := time.Now().UTC()
	issue.CreatedAt = now
	issue.UpdatedAt = now
	issue.Version = 1
	if issue.Status == "" {
		issue.Status = models.IssueStatusOpen
	}
	issue.MarkResolved(now)

	var resolvedAt sql.NullTime
	if issue.ResolvedAt != nil {
		resolvedAt = sql.NullTime{Time: *issue.ResolvedAt, Valid: true}
	}

	result, err := t.tx.ExecContext(ctx,
		`INSERT INTO issues (title, description, status, version, reporter_id, assignee_id, created_at, updated_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.Title, issue.Description, string(issue.Status), issue.Version,
		issue.ReporterID, nullInt64(issue.AssigneeID), issue.CreatedAt, issue.UpdatedAt, resolvedAt,
	)
	if err != nil {
		return fmt.Errorf("create issue: %w", classify(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}
	issue.ID = id
	if issue.Labels == nil {
		issue.Labels = []*models.Label{}
	}
	return nil
}
