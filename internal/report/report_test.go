package report

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
	"github.com/joescharf/tracker/internal/tracker"
)

func newTestReporter(t *testing.T) (*Reporter, *tracker.Service) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return New(s), tracker.NewService(s, nil)
}

func TestTopAssignees_LimitAndTies(t *testing.T) {
	r, svc := newTestReporter(t)
	ctx := context.Background()

	reporter, err := svc.CreateUser(ctx, "reporter", "")
	require.NoError(t, err)

	// Issue counts [5, 3, 3, 1].
	counts := map[string]int{"erin": 5, "dave": 3, "carol": 3, "bob": 1}
	for _, name := range []string{"erin", "dave", "carol", "bob"} {
		u, err := svc.CreateUser(ctx, name, "")
		require.NoError(t, err)
		for range counts[name] {
			_, err := svc.CreateIssue(ctx, tracker.CreateIssueInput{Title: "t", ReporterID: reporter.ID, AssigneeID: &u.ID})
			require.NoError(t, err)
		}
	}

	top, err := r.TopAssignees(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "erin", top[0].Username)
	assert.Equal(t, 5, top[0].IssueCount)
	assert.Equal(t, "carol", top[1].Username, "ties break by username")
	assert.Equal(t, 3, top[1].IssueCount)

	all, err := r.TopAssignees(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "bob", all[3].Username)
}

func TestTopAssignees_InvalidLimit(t *testing.T) {
	r, _ := newTestReporter(t)
	for _, limit := range []int{-1, 101} {
		_, err := r.TopAssignees(context.Background(), limit)
		var ve *tracker.ValidationError
		assert.ErrorAs(t, err, &ve)
	}
}

func TestLatency_EmptyHasResolvedRow(t *testing.T) {
	r, _ := newTestReporter(t)

	rows, err := r.Latency(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.LatencyRow{{Status: models.IssueStatusResolved}}, rows)
}

func TestLatency_Groups(t *testing.T) {
	r, svc := newTestReporter(t)
	ctx := context.Background()
	reporter, err := svc.CreateUser(ctx, "alice", "")
	require.NoError(t, err)

	for _, status := range []models.IssueStatus{
		models.IssueStatusOpen, models.IssueStatusOpen, models.IssueStatusResolved, models.IssueStatusClosed,
	} {
		_, err := svc.CreateIssue(ctx, tracker.CreateIssueInput{Title: "t", ReporterID: reporter.ID, Status: status})
		require.NoError(t, err)
	}

	r.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
	rows, err := r.Latency(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, models.IssueStatusResolved, rows[0].Status)
	assert.Equal(t, 1, rows[0].IssueCount)
	assert.Equal(t, 0.0, rows[0].AvgResolutionHours)

	assert.Equal(t, models.IssueStatusOpen, rows[1].Status)
	assert.Equal(t, 2, rows[1].IssueCount)
	assert.InDelta(t, 3.0, rows[1].AvgResolutionHours, 0.01)
}

func TestBucket_RoundsToTwoDecimals(t *testing.T) {
	var b bucket
	b.add(90 * time.Minute)
	b.add(20 * time.Minute)
	row := b.row(models.IssueStatusResolved)
	assert.Equal(t, 0.92, row.AvgResolutionHours)
	assert.Equal(t, 2, row.IssueCount)
}
