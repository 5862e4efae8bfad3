package tracker

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
)

// ReplaceLabels swaps the issue's whole label set for labelIDs and records a
// labels_changed event with the before and after names. If any id is unknown
// nothing changes. The issue's version is untouched.
func (s *Service) ReplaceLabels(ctx context.Context, issueID int64, labelIDs []int64, actorID *int64) (labels []*models.Label, err error) {
	ctx, span := s.startSpan(ctx, "ReplaceLabels",
		attribute.Int64("issue_id", issueID), attribute.Int("label_count", len(labelIDs)))
	defer func() { endSpan(span, err) }()

	ids := uniqueIDs(labelIDs)

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		issue, err := tx.GetIssue(ctx, issueID)
		if err != nil {
			return err
		}
		if err := requireLabels(ctx, tx, ids); err != nil {
			return err
		}

		if err := tx.SetIssueLabels(ctx, issueID, ids); err != nil {
			return err
		}
		labels, err = tx.GetIssueLabels(ctx, issueID)
		if err != nil {
			return err
		}

		_, err = NewRecorder(tx).Record(ctx, issueID, models.ChangeLabelsChanged, actorID,
			strPtr(labelNames(issue.Labels)), strPtr(labelNames(labels)))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("labels replaced", "issue_id", issueID, "labels", labelNames(labels))
	return labels, nil
}

// CreateLabel creates a label. Names are trimmed and must be unique.
func (s *Service) CreateLabel(ctx context.Context, name string) (label *models.Label, err error) {
	ctx, span := s.startSpan(ctx, "CreateLabel")
	defer func() { endSpan(span, err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "This field may not be blank.")
	}
	label = &models.Label{Name: name}
	if err := s.store.CreateLabel(ctx, label); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, invalid("name", "label with this name already exists.")
		}
		return nil, err
	}
	return label, nil
}

// RenameLabel changes a label's name.
func (s *Service) RenameLabel(ctx context.Context, id int64, name string) (label *models.Label, err error) {
	ctx, span := s.startSpan(ctx, "RenameLabel", attribute.Int64("label_id", id))
	defer func() { endSpan(span, err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "This field may not be blank.")
	}
	label, err = s.store.RenameLabel(ctx, id, name)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, invalid("name", "label with this name already exists.")
	}
	return label, err
}

// DeleteLabel removes a label and detaches it from its issues.
func (s *Service) DeleteLabel(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteLabel", attribute.Int64("label_id", id))
	defer func() { endSpan(span, err) }()

	return s.store.DeleteLabel(ctx, id)
}
