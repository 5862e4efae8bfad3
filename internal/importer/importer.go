// Package importer creates issues in bulk from CSV. Each row succeeds or
// fails on its own; only an unreadable file or missing required columns
// abort the import.
package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
)

// Column names recognised in the header row.
const (
	ColTitle            = "title"
	ColDescription      = "description"
	ColStatus           = "status"
	ColReporterUsername = "reporter_username"
	ColAssigneeUsername = "assignee_username"
)

var requiredColumns = []string{ColTitle, ColReporterUsername}

// StructuralError aborts the whole import before any row is processed.
type StructuralError struct {
	Message string
	Missing []string
}

func (e *StructuralError) Error() string { return e.Message }

// RowError describes why one row was skipped. Row is 1-indexed and counts
// the header, so the first data row is row 2.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// Result summarises an import.
type Result struct {
	TotalRows  int        `json:"total_rows"`
	Successful int        `json:"successful"`
	Failed     int        `json:"failed"`
	Errors     []RowError `json:"errors"`
}

// Importer creates issues from CSV rows.
type Importer struct {
	store  store.Store
	logger *slog.Logger
}

// New creates an Importer. A nil logger falls back to slog.Default().
func New(s store.Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: s, logger: logger}
}

// Import reads CSV from r and creates one issue per valid row. Imported
// issues carry no history events.
func (im *Importer) Import(ctx context.Context, r io.Reader) (result *Result, err error) {
	ctx, span := otel.Tracer("github.com/joescharf/tracker/internal/importer").Start(ctx, "tracker.ImportIssues")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	header, rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("total_rows", len(rows)))

	users, err := im.userDirectory(ctx)
	if err != nil {
		return nil, err
	}

	result = &Result{TotalRows: len(rows), Errors: []RowError{}}
	for idx, row := range rows {
		rowNum := idx + 2
		issue, rowErr := buildIssue(header, row, users)
		if rowErr == nil {
			rowErr = im.store.WithTx(ctx, func(tx store.Tx) error {
				return tx.CreateIssue(ctx, issue)
			})
			if rowErr != nil && (errors.Is(rowErr, store.ErrTransient) || ctx.Err() != nil) {
				return nil, rowErr
			}
		}
		if rowErr != nil {
			result.Failed++
			result.Errors = append(result.Errors, RowError{Row: rowNum, Error: rowErr.Error()})
			continue
		}
		result.Successful++
	}

	span.SetAttributes(attribute.Int("successful", result.Successful), attribute.Int("failed", result.Failed))
	im.logger.Info("csv import finished",
		"total_rows", result.TotalRows, "successful", result.Successful, "failed", result.Failed)
	return result, nil
}

func (im *Importer) userDirectory(ctx context.Context) (map[string]*models.User, error) {
	users, err := im.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	byName := make(map[string]*models.User, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}
	return byName, nil
}

// readCSV parses the whole input and maps header names to column indexes.
func readCSV(r io.Reader) (map[string]int, [][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, &StructuralError{Message: fmt.Sprintf("Failed to read CSV: %v", err)}
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, &StructuralError{Message: fmt.Sprintf("Failed to parse CSV: %v", err)}
	}
	if len(records) == 0 {
		return nil, nil, &StructuralError{Message: "Failed to parse CSV: no header row"}
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		name = strings.TrimSpace(name)
		if _, dup := header[name]; !dup {
			header[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := header[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &StructuralError{
			Message: "Missing required columns: " + strings.Join(missing, ", "),
			Missing: missing,
		}
	}
	return header, records[1:], nil
}

// buildIssue validates one row in the order reporter, assignee, status, title.
func buildIssue(header map[string]int, row []string, users map[string]*models.User) (*models.Issue, error) {
	get := func(col string) string {
		i, ok := header[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	reporterName := get(ColReporterUsername)
	if reporterName == "" {
		return nil, errors.New("Reporter not found")
	}
	reporter, ok := users[reporterName]
	if !ok {
		return nil, fmt.Errorf("Reporter '%s' not found", reporterName)
	}

	var assigneeID *int64
	if name := get(ColAssigneeUsername); name != "" {
		assignee, ok := users[name]
		if !ok {
			return nil, fmt.Errorf("Assignee '%s' not found", name)
		}
		assigneeID = &assignee.ID
	}

	status := models.IssueStatus(get(ColStatus))
	if status == "" {
		status = models.IssueStatusOpen
	}
	if !status.Valid() {
		return nil, fmt.Errorf("Invalid status '%s'", status)
	}

	title := get(ColTitle)
	if title == "" {
		return nil, errors.New("Title cannot be empty")
	}

	return &models.Issue{
		Title:       title,
		Description: get(ColDescription),
		Status:      status,
		ReporterID:  reporter.ID,
		AssigneeID:  assigneeID,
	}, nil
}
