package models

import "time"

// ChangeType classifies a history event.
type ChangeType string

const (
	ChangeCreated         ChangeType = "created"
	ChangeStatusChanged   ChangeType = "status_changed"
	ChangeAssigneeChanged ChangeType = "assignee_changed"
	ChangeLabelsChanged   ChangeType = "labels_changed"
	ChangeCommentAdded    ChangeType = "comment_added"
	ChangeUpdated         ChangeType = "updated"
)

// HistoryEvent is one immutable entry in an issue's timeline. ChangedBy is
// nil when no actor was supplied or the actor has since been deleted.
type HistoryEvent struct {
	ID         int64      `json:"id"`
	IssueID    int64      `json:"issue_id"`
	ChangeType ChangeType `json:"change_type"`
	ChangedBy  *int64     `json:"changed_by"`
	OldValue   *string    `json:"old_value"`
	NewValue   *string    `json:"new_value"`
	Timestamp  time.Time  `json:"timestamp"`
}
