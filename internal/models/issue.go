package models

import "time"

// IssueStatus represents the state of an issue.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "open"
	IssueStatusInProgress IssueStatus = "in_progress"
	IssueStatusResolved   IssueStatus = "resolved"
	IssueStatusClosed     IssueStatus = "closed"
)

// IssueStatuses lists every valid status in workflow order.
var IssueStatuses = []IssueStatus{
	IssueStatusOpen,
	IssueStatusInProgress,
	IssueStatusResolved,
	IssueStatusClosed,
}

// Valid reports whether s is one of the known statuses.
func (s IssueStatus) Valid() bool {
	for _, v := range IssueStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Issue is a tracked issue. Version is the optimistic-concurrency stamp and
// starts at 1.
type Issue struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      IssueStatus `json:"status"`
	Version     int         `json:"version"`
	ReporterID  int64       `json:"reporter_id"`
	AssigneeID  *int64      `json:"assignee_id"`
	Labels      []*Label    `json:"labels"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	ResolvedAt  *time.Time  `json:"resolved_at"`
}

// MarkResolved sets ResolvedAt the first time the issue is in the resolved
// status. Later transitions never clear or move it.
func (i *Issue) MarkResolved(now time.Time) {
	if i.Status == IssueStatusResolved && i.ResolvedAt == nil {
		t := now
		i.ResolvedAt = &t
	}
}

// LabelIDs returns the ids of the issue's labels.
func (i *Issue) LabelIDs() []int64 {
	ids := make([]int64, 0, len(i.Labels))
	for _, l := range i.Labels {
		ids = append(ids, l.ID)
	}
	return ids
}

// LabelNames returns the names of the issue's labels in their stored order.
func (i *Issue) LabelNames() []string {
	names := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		names = append(names, l.Name)
	}
	return names
}
