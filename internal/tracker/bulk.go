package tracker

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
)

// BulkStatusInput moves a batch of issues to one status.
type BulkStatusInput struct {
	IssueIDs []int64            `json:"issue_ids"`
	Status   models.IssueStatus `json:"status"`
	ActorID  *int64             `json:"actor_id"`
}

// BulkUpdateStatus moves every listed issue to in.Status in one transaction
// and returns how many issues actually changed. Issues are read in ascending
// id order. An unknown id, or a closed issue with a target other than closed,
// aborts the whole batch.
func (s *Service) BulkUpdateStatus(ctx context.Context, in BulkStatusInput) (updated int, err error) {
	ctx, span := s.startSpan(ctx, "BulkUpdateStatus",
		attribute.Int("batch_size", len(in.IssueIDs)), attribute.String("status", string(in.Status)))
	defer func() { endSpan(span, err) }()

	if len(in.IssueIDs) == 0 {
		return 0, invalid("issue_ids", "This list may not be empty.")
	}
	if !in.Status.Valid() {
		return 0, invalidf("status", "%q is not a valid choice.", in.Status)
	}
	ids := uniqueIDs(in.IssueIDs)

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		updated = 0
		issues, err := tx.LockIssues(ctx, ids)
		if err != nil {
			return err
		}
		if len(issues) != len(ids) {
			found := make(map[int64]bool, len(issues))
			for _, i := range issues {
				found[i.ID] = true
			}
			var missing []int64
			for _, id := range ids {
				if !found[id] {
					missing = append(missing, id)
				}
			}
			return invalidf("issue_ids", "Issues not found: %s", formatIDs(missing))
		}

		for _, issue := range issues {
			if issue.Status == models.IssueStatusClosed && in.Status != models.IssueStatusClosed {
				return invalidf("status", "Cannot reopen closed issue #%d", issue.ID)
			}
		}

		rec := NewRecorder(tx)
		for _, issue := range issues {
			if issue.Status == in.Status {
				continue
			}
			old := issue.Status
			if _, err := tx.CheckAndAdvance(ctx, issue.ID, issue.Version, func(i *models.Issue) error {
				i.Status = in.Status
				return nil
			}); err != nil {
				return err
			}
			if _, err := rec.Record(ctx, issue.ID, models.ChangeStatusChanged, in.ActorID,
				strPtr(string(old)), strPtr(string(in.Status))); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("bulk status update rolled back", "issue_ids", ids, "status", in.Status, "error", err)
		return 0, err
	}

	span.SetAttributes(attribute.Int("updated_count", updated))
	s.logger.Debug("bulk status updated", "issue_ids", ids, "status", in.Status, "updated", updated)
	return updated, nil
}
