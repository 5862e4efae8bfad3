package tracker

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
)

// CreateIssueInput is the payload for creating an issue.
type CreateIssueInput struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      models.IssueStatus `json:"status"`
	ReporterID  int64              `json:"reporter_id"`
	AssigneeID  *int64             `json:"assignee_id"`
	LabelIDs    []int64            `json:"label_ids"`
}

// UpdateIssueInput is a partial update guarded by Version. Nil fields are
// left unchanged; Assignee distinguishes "not given" from "unassign".
type UpdateIssueInput struct {
	Version     int                 `json:"version"`
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Status      *models.IssueStatus `json:"status"`
	Assignee    OptionalID          `json:"assignee_id"`
	ActorID     *int64              `json:"actor_id"`
}

// CreateIssue creates an issue with version 1, attaches its labels and
// records a created event attributed to the reporter.
func (s *Service) CreateIssue(ctx context.Context, in CreateIssueInput) (issue *models.Issue, err error) {
	ctx, span := s.startSpan(ctx, "CreateIssue", attribute.Int64("reporter_id", in.ReporterID))
	defer func() { endSpan(span, err) }()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title", "This field may not be blank.")
	}
	status := in.Status
	if status == "" {
		status = models.IssueStatusOpen
	}
	if !status.Valid() {
		return nil, invalidf("status", "%q is not a valid choice.", status)
	}
	labelIDs := uniqueIDs(in.LabelIDs)

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := requireUser(ctx, tx, in.ReporterID, "reporter_id", "Reporter does not exist."); err != nil {
			return err
		}
		if in.AssigneeID != nil {
			if err := requireUser(ctx, tx, *in.AssigneeID, "assignee_id", "Assignee does not exist."); err != nil {
				return err
			}
		}
		if err := requireLabels(ctx, tx, labelIDs); err != nil {
			return err
		}

		issue = &models.Issue{
			Title:       title,
			Description: strings.TrimSpace(in.Description),
			Status:      status,
			ReporterID:  in.ReporterID,
			AssigneeID:  in.AssigneeID,
		}
		if err := tx.CreateIssue(ctx, issue); err != nil {
			return err
		}
		if len(labelIDs) > 0 {
			if err := tx.SetIssueLabels(ctx, issue.ID, labelIDs); err != nil {
				return err
			}
			labels, err := tx.GetIssueLabels(ctx, issue.ID)
			if err != nil {
				return err
			}
			issue.Labels = labels
		}

		_, err := NewRecorder(tx).Record(ctx, issue.ID, models.ChangeCreated, &in.ReporterID, nil,
			strPtr("Created issue: "+issue.Title))
		return err
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("issue_id", issue.ID))
	s.logger.Debug("issue created", "issue_id", issue.ID, "title", issue.Title)
	return issue, nil
}

// UpdateIssue applies a partial update when in.Version matches the stored
// version. A successful update always advances the version by one and
// records one event per status, assignee or title/description change.
func (s *Service) UpdateIssue(ctx context.Context, id int64, in UpdateIssueInput) (issue *models.Issue, err error) {
	ctx, span := s.startSpan(ctx, "UpdateIssue",
		attribute.Int64("issue_id", id), attribute.Int("expected_version", in.Version))
	defer func() { endSpan(span, err) }()

	if in.Version < 1 {
		return nil, invalid("version", "This field is required.")
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, invalid("title", "This field may not be blank.")
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, invalidf("status", "%q is not a valid choice.", *in.Status)
	}

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		if in.Assignee.Set && in.Assignee.ID != nil {
			if err := requireUser(ctx, tx, *in.Assignee.ID, "assignee_id", "Assignee does not exist."); err != nil {
				return err
			}
		}

		var before models.Issue
		updated, err := tx.CheckAndAdvance(ctx, id, in.Version, func(i *models.Issue) error {
			before = *i
			if in.Title != nil {
				i.Title = strings.TrimSpace(*in.Title)
			}
			if in.Description != nil {
				i.Description = strings.TrimSpace(*in.Description)
			}
			if in.Status != nil {
				i.Status = *in.Status
			}
			if in.Assignee.Set {
				i.AssigneeID = in.Assignee.ID
			}
			return nil
		})
		if err != nil {
			return err
		}

		rec := NewRecorder(tx)
		if updated.Status != before.Status {
			if _, err := rec.Record(ctx, id, models.ChangeStatusChanged, in.ActorID,
				strPtr(string(before.Status)), strPtr(string(updated.Status))); err != nil {
				return err
			}
		}
		if !sameID(updated.AssigneeID, before.AssigneeID) {
			if _, err := rec.Record(ctx, id, models.ChangeAssigneeChanged, in.ActorID,
				idValue(before.AssigneeID), idValue(updated.AssigneeID)); err != nil {
				return err
			}
		}
		var changed []string
		if updated.Title != before.Title {
			changed = append(changed, "title")
		}
		if updated.Description != before.Description {
			changed = append(changed, "description")
		}
		if len(changed) > 0 {
			if _, err := rec.Record(ctx, id, models.ChangeUpdated, in.ActorID,
				nil, strPtr("Updated "+strings.Join(changed, ", "))); err != nil {
				return err
			}
		}

		issue = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("issue updated", "issue_id", id, "version", issue.Version, "status", issue.Status)
	return issue, nil
}

// DeleteIssue removes an issue together with its comments, history and
// label links.
func (s *Service) DeleteIssue(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteIssue", attribute.Int64("issue_id", id))
	defer func() { endSpan(span, err) }()

	if err := s.store.DeleteIssue(ctx, id); err != nil {
		return err
	}
	s.logger.Debug("issue deleted", "issue_id", id)
	return nil
}

func requireUser(ctx context.Context, tx store.Tx, id int64, field, msg string) error {
	if _, err := tx.GetUser(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return invalid(field, msg)
		}
		return err
	}
	return nil
}

// requireLabels fails with a ValidationError naming every id that does not
// resolve to a label.
func requireLabels(ctx context.Context, tx store.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	labels, err := tx.GetLabelsByID(ctx, ids)
	if err != nil {
		return err
	}
	if len(labels) == len(ids) {
		return nil
	}
	found := make(map[int64]bool, len(labels))
	for _, l := range labels {
		found[l.ID] = true
	}
	var missing []int64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return invalidf("label_ids", "Labels not found: %s", formatIDs(missing))
}

// uniqueIDs returns ids de-duplicated and sorted ascending.
func uniqueIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
