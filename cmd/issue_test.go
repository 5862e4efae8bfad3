package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/tracker/internal/models"
)

func resetIssueFlags() {
	issueTitle, issueDesc, issueStatus = "", "", ""
	issueReporter, issueAssignee, issueActor = "", "", ""
	issueAuthor, issueBody, issueSearch, issueOrdering = "", "", "", ""
	issueLabels = nil
	issueVersion, issueLimit = 0, 50
	issueUnassign, issueNewestFirst = false, false
}

func stdout() *bytes.Buffer { return ui.Out.(*bytes.Buffer) }

// seedCLI creates alice, bob, the "bug" label and one issue assigned to bob.
func seedCLI(t *testing.T) {
	t.Helper()
	resetIssueFlags()
	t.Cleanup(resetIssueFlags)

	require.NoError(t, userAddRun("alice"))
	require.NoError(t, userAddRun("bob"))
	require.NoError(t, labelCreateRun("bug"))

	issueTitle = "Login broken"
	issueStatus = "open"
	issueReporter = "alice"
	issueAssignee = "bob"
	issueLabels = []string{"bug"}
	require.NoError(t, issueAddRun())
	resetIssueFlags()
	stdout().Reset()
}

func TestIssueAddAndList(t *testing.T) {
	testEnv(t)
	seedCLI(t)

	require.NoError(t, issueListRun())
	out := stdout().String()
	assert.Contains(t, out, "Login broken")
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "bug")

	stdout().Reset()
	issueStatus = "closed"
	require.NoError(t, issueListRun())
	assert.Contains(t, stdout().String(), "No issues found")

	issueStatus = "bogus"
	assert.Error(t, issueListRun())
}

func TestIssueAdd_UnknownReporter(t *testing.T) {
	testEnv(t)
	resetIssueFlags()
	t.Cleanup(resetIssueFlags)

	issueTitle = "Orphan"
	issueReporter = "nobody"
	err := issueAddRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `user "nobody" not found`)
}

func TestIssueUpdate_VersionConflict(t *testing.T) {
	testEnv(t)
	seedCLI(t)

	resolved := "resolved"
	require.NoError(t, issueUpdateRun("1", issueUpdate{Status: &resolved}))
	assert.Contains(t, stdout().String(), "version 2")

	title := "Stale edit"
	err := issueUpdateRun("1", issueUpdate{Title: &title, Version: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "current is 2")

	empty := ""
	require.NoError(t, issueUpdateRun("#1", issueUpdate{Assignee: &empty, Actor: "alice"}))

	jsonOut = true
	t.Cleanup(func() { jsonOut = false })
	stdout().Reset()
	require.NoError(t, issueShowRun("1"))
	var shown struct {
		models.Issue
		Comments []*models.Comment `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(stdout().Bytes(), &shown))
	assert.Equal(t, 3, shown.Version)
	assert.Nil(t, shown.AssigneeID)
	assert.NotNil(t, shown.ResolvedAt)
}

func TestIssueCommentLabelsTimeline(t *testing.T) {
	testEnv(t)
	seedCLI(t)

	issueAuthor = "bob"
	issueBody = "Looking into it"
	require.NoError(t, issueCommentRun("1"))

	issueLabels = nil
	issueActor = "alice"
	require.NoError(t, issueLabelsRun("1"))
	assert.Contains(t, stdout().String(), "Cleared labels")

	jsonOut = true
	t.Cleanup(func() { jsonOut = false })
	stdout().Reset()
	require.NoError(t, issueTimelineRun("1"))

	var events []*models.HistoryEvent
	require.NoError(t, json.Unmarshal(stdout().Bytes(), &events))
	require.Len(t, events, 3)
	assert.Equal(t, models.ChangeCreated, events[0].ChangeType)
	assert.Equal(t, models.ChangeCommentAdded, events[1].ChangeType)
	assert.Equal(t, models.ChangeLabelsChanged, events[2].ChangeType)

	err := issueTimelineRun("99")
	assert.Error(t, err)
}

func TestIssueBulkStatusAndDelete(t *testing.T) {
	testEnv(t)
	seedCLI(t)

	issueTitle, issueReporter, issueStatus = "Second", "alice", "open"
	require.NoError(t, issueAddRun())
	resetIssueFlags()

	issueStatus = "closed"
	require.NoError(t, issueBulkStatusRun([]string{"1", "2"}))
	assert.Contains(t, stdout().String(), "Successfully updated 2 issues")

	issueStatus = "open"
	err := issueBulkStatusRun([]string{"1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot reopen closed issue #1")

	require.NoError(t, issueDeleteRun("2"))
	assert.Error(t, issueDeleteRun("2"))
	assert.Error(t, issueDeleteRun("abc"))
}

func TestIssueImport(t *testing.T) {
	dir := testEnv(t)
	seedCLI(t)

	path := filepath.Join(dir, "issues.csv")
	csv := "title,description,status,reporter_username,assignee_username\n" +
		"Imported,from csv,open,alice,bob\n" +
		"Bad,,open,ghost,\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	require.NoError(t, issueImportRun(path))
	out := stdout().String()
	assert.Contains(t, out, "imported: 1, failed: 1")
	assert.Contains(t, out, "Reporter 'ghost' not found")

	assert.Error(t, issueImportRun(filepath.Join(dir, "missing.csv")))
}

func TestReports(t *testing.T) {
	testEnv(t)
	seedCLI(t)

	jsonOut = true
	t.Cleanup(func() { jsonOut = false })

	reportLimit = 10
	require.NoError(t, reportTopAssigneesRun())
	var top []*models.AssigneeCount
	require.NoError(t, json.Unmarshal(stdout().Bytes(), &top))
	require.Len(t, top, 1)
	assert.Equal(t, "bob", top[0].Username)

	reportLimit = 0
	assert.Error(t, reportTopAssigneesRun())
	reportLimit = 10

	stdout().Reset()
	require.NoError(t, reportLatencyRun())
	var rows []models.LatencyRow
	require.NoError(t, json.Unmarshal(stdout().Bytes(), &rows))
	require.NotEmpty(t, rows)
	assert.Equal(t, models.IssueStatusResolved, rows[0].Status)
}

func TestUserDelete(t *testing.T) {
	testEnv(t)
	seedCLI(t)

	require.NoError(t, userDeleteRun("bob"))
	err := userDeleteRun("bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
