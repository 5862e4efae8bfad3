package tracker

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
)

const commentPreviewLen = 100

// Recorder appends history events inside the caller's transaction.
type Recorder struct {
	tx store.Tx
}

// NewRecorder returns a Recorder bound to tx.
func NewRecorder(tx store.Tx) *Recorder {
	return &Recorder{tx: tx}
}

// Record appends one immutable event to the issue's history. An actor that
// does not exist is recorded as absent rather than failing the operation.
func (r *Recorder) Record(ctx context.Context, issueID int64, changeType models.ChangeType, actorID *int64, oldValue, newValue *string) (*models.HistoryEvent, error) {
	actor := actorID
	if actor != nil {
		if _, err := r.tx.GetUser(ctx, *actor); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
			actor = nil
		}
	}

	e := &models.HistoryEvent{
		IssueID:    issueID,
		ChangeType: changeType,
		ChangedBy:  actor,
		OldValue:   oldValue,
		NewValue:   newValue,
	}
	if err := r.tx.AppendHistory(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func strPtr(s string) *string { return &s }

// idValue renders an optional user id as a history snapshot.
func idValue(id *int64) *string {
	if id == nil {
		return nil
	}
	return strPtr(strconv.FormatInt(*id, 10))
}

// commentPreview returns the text stored on a comment_added event.
func commentPreview(body string) string {
	if utf8.RuneCountInString(body) <= commentPreviewLen {
		return "Comment added: " + body
	}
	runes := []rune(body)
	return "Comment added: " + string(runes[:commentPreviewLen]) + "..."
}

func labelNames(labels []*models.Label) string {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.Name
	}
	return strings.Join(names, ", ")
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
