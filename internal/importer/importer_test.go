package importer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
)

func newTestImporter(t *testing.T, usernames ...string) (*Importer, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	for _, name := range usernames {
		require.NoError(t, s.CreateUser(context.Background(), &models.User{Username: name}))
	}
	return New(s, nil), s
}

func TestImport_PerRowIsolation(t *testing.T) {
	im, s := newTestImporter(t, "alice", "bob")
	ctx := context.Background()

	csv := "title,description,status,reporter_username,assignee_username\n" +
		"Login broken,500 on submit,open,alice,bob\n" +
		"Signup slow,,in_progress,mallory,\n" +
		"Logout button,,resolved,bob,\n"

	result, err := im.Import(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalRows)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Equal(t, "Reporter 'mallory' not found", result.Errors[0].Error)

	issues, total, err := s.ListIssues(ctx, store.IssueListFilter{Ordering: "created_at"})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	assert.Equal(t, "Login broken", issues[0].Title)
	assert.Equal(t, "500 on submit", issues[0].Description)
	require.NotNil(t, issues[0].AssigneeID)
	assert.Equal(t, 1, issues[0].Version)
	assert.Equal(t, models.IssueStatusResolved, issues[1].Status)
	assert.NotNil(t, issues[1].ResolvedAt)

	events, err := s.ListHistory(ctx, issues[0].ID, false)
	require.NoError(t, err)
	assert.Empty(t, events, "imported rows carry no history")
}

func TestImport_RowErrors(t *testing.T) {
	im, _ := newTestImporter(t, "alice")

	csv := "title,status,reporter_username,assignee_username\n" +
		"ok,,alice,\n" +
		"no reporter,,,\n" +
		"bad assignee,,alice,ghost\n" +
		"bad status,done,alice,\n" +
		"   ,open,alice,\n"

	result, err := im.Import(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalRows)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 4, result.Failed)
	assert.Equal(t, []RowError{
		{Row: 3, Error: "Reporter not found"},
		{Row: 4, Error: "Assignee 'ghost' not found"},
		{Row: 5, Error: "Invalid status 'done'"},
		{Row: 6, Error: "Title cannot be empty"},
	}, result.Errors)
}

func TestImport_MissingRequiredColumns(t *testing.T) {
	im, s := newTestImporter(t, "alice")

	_, err := im.Import(context.Background(), strings.NewReader("description,status\nx,open\n"))
	var se *StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{"title", "reporter_username"}, se.Missing)
	assert.Equal(t, "Missing required columns: title, reporter_username", se.Error())

	_, total, err := s.ListIssues(context.Background(), store.IssueListFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestImport_UnreadableFile(t *testing.T) {
	im, _ := newTestImporter(t)

	_, err := im.Import(context.Background(), strings.NewReader(""))
	var se *StructuralError
	assert.ErrorAs(t, err, &se)

	_, err = im.Import(context.Background(), strings.NewReader("title,reporter_username\n\"unterminated,alice\n"))
	assert.ErrorAs(t, err, &se)
}

func TestImport_HeaderOnlyAndBOM(t *testing.T) {
	im, _ := newTestImporter(t, "alice")

	result, err := im.Import(context.Background(), strings.NewReader("\ufefftitle,reporter_username\n"))
	require.NoError(t, err)
	assert.Zero(t, result.TotalRows)
	assert.NotNil(t, result.Errors)

	result, err = im.Import(context.Background(), strings.NewReader("\ufefftitle,reporter_username\nshort row\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "Reporter not found", result.Errors[0].Error)
}
