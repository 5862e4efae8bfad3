package models

// AssigneeCount is one row of the top-assignees report.
type AssigneeCount struct {
	AssigneeID int64  `json:"assignee_id"`
	Username   string `json:"username"`
	IssueCount int    `json:"issue_count"`
}

// LatencyRow is one row of the latency report. For resolved issues the hours
// are creation-to-resolution; for open and in-progress issues they are the
// current age.
type LatencyRow struct {
	Status             IssueStatus `json:"status"`
	AvgResolutionHours float64     `json:"avg_resolution_hours"`
	IssueCount         int         `json:"issue_count"`
}
