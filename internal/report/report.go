// Package report computes the analytical views over issues: who carries the
// most assigned work and how long issues take to resolve.
package report

import (
	"context"
	"math"
	"time"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
	"github.com/joescharf/tracker/internal/tracker"
)

const (
	DefaultTopAssigneesLimit = 10
	MaxTopAssigneesLimit     = 100
)

// Reporter runs reports against a store.
type Reporter struct {
	store store.Store
	now   func() time.Time
}

// New creates a Reporter.
func New(s store.Store) *Reporter {
	return &Reporter{store: s, now: time.Now}
}

// TopAssignees ranks assignees by issue count, highest first. A zero limit
// means DefaultTopAssigneesLimit.
func (r *Reporter) TopAssignees(ctx context.Context, limit int) ([]*models.AssigneeCount, error) {
	if limit == 0 {
		limit = DefaultTopAssigneesLimit
	}
	if limit < 1 || limit > MaxTopAssigneesLimit {
		return nil, tracker.NewValidationError("limit", "Ensure this value is between 1 and 100.")
	}
	return r.store.TopAssignees(ctx, limit)
}

// Latency reports the mean creation-to-resolution time of every issue that
// has been resolved, plus the mean age of issues still open or in progress.
// The resolved row is always present; the others only when such issues exist.
func (r *Reporter) Latency(ctx context.Context) ([]models.LatencyRow, error) {
	timings, err := r.store.ListIssueTimings(ctx)
	if err != nil {
		return nil, err
	}
	now := r.now().UTC()

	var resolved, open, inProgress bucket
	for _, t := range timings {
		if t.ResolvedAt != nil {
			resolved.add(t.ResolvedAt.Sub(t.CreatedAt))
		}
		switch t.Status {
		case models.IssueStatusOpen:
			open.add(now.Sub(t.CreatedAt))
		case models.IssueStatusInProgress:
			inProgress.add(now.Sub(t.CreatedAt))
		}
	}

	rows := []models.LatencyRow{resolved.row(models.IssueStatusResolved)}
	if open.count > 0 {
		rows = append(rows, open.row(models.IssueStatusOpen))
	}
	if inProgress.count > 0 {
		rows = append(rows, inProgress.row(models.IssueStatusInProgress))
	}
	return rows, nil
}

type bucket struct {
	total time.Duration
	count int
}

func (b *bucket) add(d time.Duration) {
	b.total += d
	b.count++
}

func (b bucket) row(status models.IssueStatus) models.LatencyRow {
	hours := 0.0
	if b.count > 0 {
		hours = b.total.Hours() / float64(b.count)
	}
	return models.LatencyRow{
		Status:             status,
		AvgResolutionHours: math.Round(hours*100) / 100,
		IssueCount:         b.count,
	}
}
