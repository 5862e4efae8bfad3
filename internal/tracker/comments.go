package tracker

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
)

// AddCommentInput is the payload for commenting on an issue.
type AddCommentInput struct {
	Body     string `json:"body"`
	AuthorID int64  `json:"author_id"`
}

// AddComment stores a comment and records a comment_added event. The body is
// checked before the transaction opens. The issue's version is untouched.
func (s *Service) AddComment(ctx context.Context, issueID int64, in AddCommentInput) (comment *models.Comment, err error) {
	ctx, span := s.startSpan(ctx, "AddComment",
		attribute.Int64("issue_id", issueID), attribute.Int64("author_id", in.AuthorID))
	defer func() { endSpan(span, err) }()

	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, invalid("body", "Comment body cannot be empty.")
	}

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetIssue(ctx, issueID); err != nil {
			return err
		}
		if err := requireUser(ctx, tx, in.AuthorID, "author_id", "Author does not exist."); err != nil {
			return err
		}

		comment = &models.Comment{IssueID: issueID, AuthorID: in.AuthorID, Body: body}
		if err := tx.CreateComment(ctx, comment); err != nil {
			return err
		}
		_, err := NewRecorder(tx).Record(ctx, issueID, models.ChangeCommentAdded, &in.AuthorID,
			nil, strPtr(commentPreview(body)))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("comment added", "issue_id", issueID, "comment_id", comment.ID)
	return comment, nil
}
