package tracker

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
)

func newTestService(t testing.TB) *Service {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return NewService(s, nil)
}

func mustUser(t testing.TB, svc *Service, username string) *models.User {
	t.Helper()
	u, err := svc.CreateUser(context.Background(), username, username+"@example.com")
	require.NoError(t, err)
	return u
}

func mustIssue(t testing.TB, svc *Service, in CreateIssueInput) *models.Issue {
	t.Helper()
	issue, err := svc.CreateIssue(context.Background(), in)
	require.NoError(t, err)
	return issue
}

func mustLabel(t testing.TB, svc *Service, name string) *models.Label {
	t.Helper()
	l, err := svc.CreateLabel(context.Background(), name)
	require.NoError(t, err)
	return l
}

func history(t testing.TB, svc *Service, issueID int64) []*models.HistoryEvent {
	t.Helper()
	events, err := svc.Store().ListHistory(context.Background(), issueID, true)
	require.NoError(t, err)
	return events
}

func statusPtr(s models.IssueStatus) *models.IssueStatus { return &s }

func assertValidation(t *testing.T, err error, field string) *ValidationError {
	t.Helper()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, field)
	return ve
}

// --- Create ---

func TestCreateIssue_LoginBrokenScenario(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	reporter := mustUser(t, svc, "alice")

	issue := mustIssue(t, svc, CreateIssueInput{Title: "Login broken", ReporterID: reporter.ID})
	assert.Equal(t, 1, issue.Version)
	events := history(t, svc, issue.ID)
	require.Len(t, events, 1)
	assert.Equal(t, models.ChangeCreated, events[0].ChangeType)
	assert.Equal(t, "Created issue: Login broken", *events[0].NewValue)
	assert.Equal(t, reporter.ID, *events[0].ChangedBy)

	updated, err := svc.UpdateIssue(ctx, issue.ID, UpdateIssueInput{
		Version: 1, Status: statusPtr(models.IssueStatusResolved),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	require.NotNil(t, updated.ResolvedAt)

	events = history(t, svc, issue.ID)
	require.Len(t, events, 2)
	assert.Equal(t, models.ChangeStatusChanged, events[1].ChangeType)
	assert.Equal(t, "open", *events[1].OldValue)
	assert.Equal(t, "resolved", *events[1].NewValue)

	_, err = svc.UpdateIssue(ctx, issue.ID, UpdateIssueInput{
		Version: 1, Status: statusPtr(models.IssueStatusClosed),
	})
	var conflict *store.VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 2, conflict.Current)

	got, err := svc.Store().GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, models.IssueStatusResolved, got.Status)
	assert.True(t, got.UpdatedAt.Equal(updated.UpdatedAt))
	assert.Len(t, history(t, svc, issue.ID), 2)
}

func TestCreateIssue_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	reporter := mustUser(t, svc, "alice")

	_, err := svc.CreateIssue(ctx, CreateIssueInput{Title: "   ", ReporterID: reporter.ID})
	assertValidation(t, err, "title")

	_, err = svc.CreateIssue(ctx, CreateIssueInput{Title: "t", ReporterID: 999})
	assertValidation(t, err, "reporter_id")

	missing := int64(999)
	_, err = svc.CreateIssue(ctx, CreateIssueInput{Title: "t", ReporterID: reporter.ID, AssigneeID: &missing})
	assertValidation(t, err, "assignee_id")

	_, err = svc.CreateIssue(ctx, CreateIssueInput{Title: "t", ReporterID: reporter.ID, Status: "done"})
	assertValidation(t, err, "status")

	_, err = svc.CreateIssue(ctx, CreateIssueInput{Title: "t", ReporterID: reporter.ID, LabelIDs: []int64{42}})
	ve := assertValidation(t, err, "label_ids")
	assert.Equal(t, "Labels not found: [42]", ve.Error())

	_, total, err := svc.Store().ListIssues(ctx, store.IssueListFilter{})
	require.NoError(t, err)
	assert.Zero(t, total, "no issue is created on validation failure")
}

func TestCreateIssue_WithLabelsAndAssignee(t *testing.T) {
	svc := newTestService(t)
	reporter := mustUser(t, svc, "alice")
	assignee := mustUser(t, svc, "bob")
	ui := mustLabel(t, svc, "ui")
	bug := mustLabel(t, svc, "bug")

	issue := mustIssue(t, svc, CreateIssueInput{
		Title:      "  Button misaligned  ",
		ReporterID: reporter.ID,
		AssigneeID: &assignee.ID,
		Status:     models.IssueStatusResolved,
		LabelIDs:   []int64{ui.ID, bug.ID, ui.ID},
	})
	assert.Equal(t, "Button misaligned", issue.Title)
	assert.Equal(t, []string{"bug", "ui"}, issue.LabelNames())
	assert.NotNil(t, issue.ResolvedAt)
	assert.Equal(t, assignee.ID, *issue.AssigneeID)
}

// --- Update ---

func TestUpdateIssue_AssigneeAndFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	reporter := mustUser(t, svc, "alice")
	bob := mustUser(t, svc, "bob")
	issue := mustIssue(t, svc, CreateIssueInput{Title: "t", ReporterID: reporter.ID})

	title := "new title"
	updated, err := svc.UpdateIssue(ctx, issue.ID, UpdateIssueInput{
		Version: 1, Title: &title, Assignee: SetID(bob.ID), ActorID: &reporter.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "new title", updated.Title)
	assert.Equal(t, bob.ID, *updated.AssigneeID)

	events := history(t, svc, issue.ID)
	require.Len(t, events, 3)
	assert.Equal(t, models.ChangeAssigneeChanged, events[1].ChangeType)
	assert.Nil(t, events[1].OldValue)
	assert.Equal(t, "2", *events[1].NewValue)
	assert.Equal(t, reporter.ID, *events[1].ChangedBy)
	assert.Equal(t, models.ChangeUpdated, events[2].ChangeType)
	assert.Equal(t, "Updated title", *events[2].NewValue)

	// Unassign.
	updated, err = svc.UpdateIssue(ctx, issue.ID, UpdateIssueInput{Version: 2, Assignee: ClearID()})
	require.NoError(t, err)
	assert.Nil(t, updated.AssigneeID)
	events = history(t, svc, issue.ID)
	require.Len(t, events, 4)
	assert.Equal(t, "2", *events[3].OldValue)
	assert.Nil(t, events[3].NewValue)

	// A no-op update still advances the version but records nothing.
	updated, err = svc.UpdateIssue(ctx, issue.ID, UpdateIssueInput{Version: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Version)
	assert.Len(t, history(t, svc, issue.ID), 4)
}

func TestUpdateIssue_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	reporter := mustUser(t, svc, "alice")
	issue := mustIssue(t, svc, CreateIssueInput{Title: "t", ReporterID: reporter.ID})

	_, err := svc.UpdateIssue(ctx, issue.ID, UpdateIssueInput{})
	assertValidation(t, err, "version")

	_, err = svc.UpdateIssue(ctx, issue.ID, UpdateIssueInput{Version: 1, Assignee: SetID(999)})
	assertValidation(t, err, "assignee_id")

	blank := " "
	_, err = svc.UpdateIssue(ctx, issue.ID, UpdateIssueInput{Version: 1, Title: &blank})
	assertValidation(t, err, "title")

	_, err = svc.UpdateIssue(ctx, issue.ID, UpdateIssueInput{Version: 1, Status: statusPtr("bogus")})
	assertValidation(t, err, "status")

	_, err = svc.UpdateIssue(ctx, 999, UpdateIssueInput{Version: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := svc.Store().GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
}

func TestUpdateIssue_ResolvedAtSetOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	reporter := mustUser(t, svc, "alice")
	issue := mustIssue(t, svc, CreateIssueInput{Title: "t", ReporterID: reporter.ID})

	var first *models.Issue
	version := 1
	for i, status := range []models.IssueStatus{
		models.IssueStatusResolved, models.IssueStatusInProgress, models.IssueStatusResolved,
	} {
		updated, err := svc.UpdateIssue(ctx, issue.ID, UpdateIssueInput{Version: version, Status: statusPtr(status)})
		require.NoError(t, err)
		version = updated.Version
		if i == 0 {
			first = updated
		}
	}

	got, err := svc.Store().GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ResolvedAt)
	assert.True(t, first.ResolvedAt.Equal(*got.ResolvedAt))
	assert.Equal(t, 4, got.Version)
}

func TestUpdateIssueInput_DecodesAssigneeTriState(t *testing.T) {
	var absent, null, set UpdateIssueInput
	require.NoError(t, json.Unmarshal([]byte(`{"version":1}`), &absent))
	require.NoError(t, json.Unmarshal([]byte(`{"version":1,"assignee_id":null}`), &null))
	require.NoError(t, json.Unmarshal([]byte(`{"version":1,"assignee_id":7}`), &set))

	assert.False(t, absent.Assignee.Set)
	assert.True(t, null.Assignee.Set)
	assert.Nil(t, null.Assignee.ID)
	assert.True(t, set.Assignee.Set)
	assert.Equal(t, int64(7), *set.Assignee.ID)
}

// --- Comments ---

func TestAddComment(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	reporter := mustUser(t, svc, "alice")
	issue := mustIssue(t, svc, CreateIssueInput{Title: "t", ReporterID: reporter.ID})

	c, err := svc.AddComment(ctx, issue.ID, AddCommentInput{Body: "  looks good  ", AuthorID: reporter.ID})
	require.NoError(t, err)
	assert.Equal(t, "looks good", c.Body)

	long := strings.Repeat("x", 150)
	_, err = svc.AddComment(ctx, issue.ID, AddCommentInput{Body: long, AuthorID: reporter.ID})
	require.NoError(t, err)

	events := history(t, svc, issue.ID)
	require.Len(t, events, 3)
	assert.Equal(t, "Comment added: looks good", *events[1].NewValue)
	assert.Equal(t, "Comment added: "+strings.Repeat("x", 100)+"...", *events[2].NewValue)

	got, err := svc.Store().GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version, "comments do not touch the version")
}

func TestAddComment_RejectedBeforeAnyWrite(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	reporter := mustUser(t, svc, "alice")
	issue := mustIssue(t, svc, CreateIssueInput{Title: "t", ReporterID: reporter.ID})

	_, err := svc.AddComment(ctx, issue.ID, AddCommentInput{Body: "   ", AuthorID: reporter.ID})
	assertValidation(t, err, "body")

	_, err = svc.AddComment(ctx, issue.ID, AddCommentInput{Body: "hi", AuthorID: 999})
	assertValidation(t, err, "author_id")

	_, err = svc.AddComment(ctx, 999, AddCommentInput{Body: "hi", AuthorID: reporter.ID})
	assert.ErrorIs(t, err, store.ErrNotFound)

	comments, err := svc.Store().ListComments(ctx, store.CommentListFilter{IssueID: issue.ID})
	require.NoError(t, err)
	assert.Empty(t, comments)
	assert.Len(t, history(t, svc, issue.ID), 1)
}

// --- Labels ---

func TestReplaceLabels(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	reporter := mustUser(t, svc, "alice")
	ui := mustLabel(t, svc, "ui")
	bug := mustLabel(t, svc, "bug")
	backend := mustLabel(t, svc, "backend")
	issue := mustIssue(t, svc, CreateIssueInput{Title: "t", ReporterID: reporter.ID, LabelIDs: []int64{ui.ID}})

	labels, err := svc.ReplaceLabels(ctx, issue.ID, []int64{bug.ID, backend.ID}, &reporter.ID)
	require.NoError(t, err)
	require.Len(t, labels, 2)
	assert.Equal(t, "backend", labels[0].Name)

	events := history(t, svc, issue.ID)
	require.Len(t, events, 2)
	assert.Equal(t, models.ChangeLabelsChanged, events[1].ChangeType)
	assert.Equal(t, "ui", *events[1].OldValue)
	assert.Equal(t, "backend, bug", *events[1].NewValue)

	got, err := svc.Store().GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
}

func TestReplaceLabels_UnknownIDChangesNothing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	reporter := mustUser(t, svc, "alice")
	ui := mustLabel(t, svc, "ui")
	issue := mustIssue(t, svc, CreateIssueInput{Title: "t", ReporterID: reporter.ID, LabelIDs: []int64{ui.ID}})

	_, err := svc.ReplaceLabels(ctx, issue.ID, []int64{ui.ID, 77, 55}, nil)
	ve := assertValidation(t, err, "label_ids")
	assert.Equal(t, "Labels not found: [55, 77]", ve.Error())

	got, err := svc.Store().GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ui"}, got.LabelNames())
	assert.Len(t, history(t, svc, issue.ID), 1)

	_, err = svc.ReplaceLabels(ctx, 999, []int64{ui.ID}, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReplaceLabels_EmptyClears(t *testing.T) {
	svc := newTestService(t)
	reporter := mustUser(t, svc, "alice")
	ui := mustLabel(t, svc, "ui")
	issue := mustIssue(t, svc, CreateIssueInput{Title: "t", ReporterID: reporter.ID, LabelIDs: []int64{ui.ID}})

	labels, err := svc.ReplaceLabels(context.Background(), issue.ID, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, labels)
	events := history(t, svc, issue.ID)
	assert.Equal(t, "", *events[1].NewValue)
}

func TestLabelAdmin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	l := mustLabel(t, svc, "bug")
	_, err := svc.CreateLabel(ctx, "bug")
	assertValidation(t, err, "name")
	_, err = svc.CreateLabel(ctx, " ")
	assertValidation(t, err, "name")

	mustLabel(t, svc, "ui")
	_, err = svc.RenameLabel(ctx, l.ID, "ui")
	assertValidation(t, err, "name")

	renamed, err := svc.RenameLabel(ctx, l.ID, "defect")
	require.NoError(t, err)
	assert.Equal(t, "defect", renamed.Name)

	require.NoError(t, svc.DeleteLabel(ctx, l.ID))
	assert.ErrorIs(t, svc.DeleteLabel(ctx, l.ID), store.ErrNotFound)
}

// --- Bulk status ---

func TestBulkUpdateStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	reporter := mustUser(t, svc, "alice")
	a := mustIssue(t, svc, CreateIssueInput{Title: "a", ReporterID: reporter.ID})
	b := mustIssue(t, svc, CreateIssueInput{Title: "b", ReporterID: reporter.ID, Status: models.IssueStatusResolved})
	c := mustIssue(t, svc, CreateIssueInput{Title: "c", ReporterID: reporter.ID, Status: models.IssueStatusInProgress})

	n, err := svc.BulkUpdateStatus(ctx, BulkStatusInput{
		IssueIDs: []int64{c.ID, a.ID, b.ID, a.ID}, Status: models.IssueStatusResolved,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n, "b is already resolved")

	for _, id := range []int64{a.ID, c.ID} {
		got, err := svc.Store().GetIssue(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.IssueStatusResolved, got.Status)
		assert.Equal(t, 2, got.Version)
		assert.NotNil(t, got.ResolvedAt)
		assert.Len(t, history(t, svc, id), 2)
	}
	got, err := svc.Store().GetIssue(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.Len(t, history(t, svc, b.ID), 1)
}

func TestBulkUpdateStatus_ClosedIssueAbortsBatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	reporter := mustUser(t, svc, "alice")
	open := mustIssue(t, svc, CreateIssueInput{Title: "open", ReporterID: reporter.ID, Status: models.IssueStatusInProgress})
	closed := mustIssue(t, svc, CreateIssueInput{Title: "closed", ReporterID: reporter.ID, Status: models.IssueStatusClosed})

	n, err := svc.BulkUpdateStatus(ctx, BulkStatusInput{
		IssueIDs: []int64{open.ID, closed.ID}, Status: models.IssueStatusOpen,
	})
	ve := assertValidation(t, err, "status")
	assert.Contains(t, ve.Error(), "Cannot reopen closed issue #")
	assert.Zero(t, n)

	for _, issue := range []*models.Issue{open, closed} {
		got, err := svc.Store().GetIssue(ctx, issue.ID)
		require.NoError(t, err)
		assert.Equal(t, issue.Status, got.Status)
		assert.Equal(t, 1, got.Version)
		assert.Len(t, history(t, svc, issue.ID), 1, "no status_changed events")
	}

	// Closing a closed issue is allowed and counts as no change.
	n, err = svc.BulkUpdateStatus(ctx, BulkStatusInput{
		IssueIDs: []int64{open.ID, closed.ID}, Status: models.IssueStatusClosed,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBulkUpdateStatus_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	reporter := mustUser(t, svc, "alice")
	a := mustIssue(t, svc, CreateIssueInput{Title: "a", ReporterID: reporter.ID})

	_, err := svc.BulkUpdateStatus(ctx, BulkStatusInput{Status: models.IssueStatusClosed})
	assertValidation(t, err, "issue_ids")

	_, err = svc.BulkUpdateStatus(ctx, BulkStatusInput{IssueIDs: []int64{a.ID}, Status: "nope"})
	assertValidation(t, err, "status")

	_, err = svc.BulkUpdateStatus(ctx, BulkStatusInput{IssueIDs: []int64{a.ID, 404}, Status: models.IssueStatusClosed})
	ve := assertValidation(t, err, "issue_ids")
	assert.Equal(t, "Issues not found: [404]", ve.Error())

	got, err := svc.Store().GetIssue(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusOpen, got.Status)
}

// --- Users and history actors ---

func TestCreateUser_Duplicate(t *testing.T) {
	svc := newTestService(t)
	mustUser(t, svc, "alice")
	_, err := svc.CreateUser(context.Background(), "alice", "")
	assertValidation(t, err, "username")
	_, err = svc.CreateUser(context.Background(), "", "")
	assertValidation(t, err, "username")
}

func TestRecord_UnknownActorStoredAsAbsent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	reporter := mustUser(t, svc, "alice")
	issue := mustIssue(t, svc, CreateIssueInput{Title: "t", ReporterID: reporter.ID})

	ghost := int64(999)
	_, err := svc.UpdateIssue(ctx, issue.ID, UpdateIssueInput{
		Version: 1, Status: statusPtr(models.IssueStatusInProgress), ActorID: &ghost,
	})
	require.NoError(t, err)

	events := history(t, svc, issue.ID)
	require.Len(t, events, 2)
	assert.Nil(t, events[1].ChangedBy)
}

func TestDeleteUser_ClearsAssignments(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	reporter := mustUser(t, svc, "alice")
	bob := mustUser(t, svc, "bob")
	issue := mustIssue(t, svc, CreateIssueInput{Title: "t", ReporterID: reporter.ID, AssigneeID: &bob.ID})

	require.NoError(t, svc.DeleteUser(ctx, bob.ID))
	got, err := svc.Store().GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssigneeID)

	require.NoError(t, svc.DeleteUser(ctx, reporter.ID))
	_, err = svc.Store().GetIssue(ctx, issue.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteIssue(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	reporter := mustUser(t, svc, "alice")
	issue := mustIssue(t, svc, CreateIssueInput{Title: "t", ReporterID: reporter.ID})

	require.NoError(t, svc.DeleteIssue(ctx, issue.ID))
	assert.Empty(t, history(t, svc, issue.ID))
	assert.ErrorIs(t, svc.DeleteIssue(ctx, issue.ID), store.ErrNotFound)
}
