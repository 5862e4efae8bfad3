package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/store"
	"github.com/joescharf/tracker/internal/tracker"
)

// issueDetail is the single-issue representation with nested comments.
type issueDetail struct {
	*models.Issue
	Comments []*models.Comment `json:"comments"`
}

type issuePage struct {
	Count    int             `json:"count"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Results  []*models.Issue `json:"results"`
}

func (s *Server) listIssues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.IssueListFilter{
		Status:   models.IssueStatus(q.Get("status")),
		Search:   q.Get("search"),
		Ordering: q.Get("ordering"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		s.writeServiceError(w, r, tracker.NewValidationError("status", "Select a valid choice."))
		return
	}
	if !store.ValidOrdering(filter.Ordering) {
		s.writeServiceError(w, r, tracker.NewValidationError("ordering", "Unsupported ordering."))
		return
	}
	var verr *tracker.ValidationError
	if filter.AssigneeID, verr = queryID(r, "assignee"); verr != nil {
		s.writeServiceError(w, r, verr)
		return
	}
	if filter.ReporterID, verr = queryID(r, "reporter"); verr != nil {
		s.writeServiceError(w, r, verr)
		return
	}

	page, pageSize := 1, s.cfg.PageSize
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeServiceError(w, r, tracker.NewValidationError("page", "Invalid page."))
			return
		}
		page = n
	}
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeServiceError(w, r, tracker.NewValidationError("page_size", "Invalid page size."))
			return
		}
		pageSize = min(n, maxPageSize)
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	issues, total, err := s.store.ListIssues(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issuePage{Count: total, Page: page, PageSize: pageSize, Results: issues})
}

func (s *Server) createIssue(w http.ResponseWriter, r *http.Request) {
	var in tracker.CreateIssueInput
	if !decodeJSON(w, r, &in) {
		return
	}
	issue, err := s.svc.CreateIssue(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, issue)
}

func (s *Server) getIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "issue")
	if !ok {
		return
	}
	issue, err := s.store.GetIssue(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	comments, err := s.store.ListComments(r.Context(), store.CommentListFilter{IssueID: id})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issueDetail{Issue: issue, Comments: comments})
}

func (s *Server) updateIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "issue")
	if !ok {
		return
	}
	var in tracker.UpdateIssueInput
	if !decodeJSON(w, r, &in) {
		return
	}
	issue, err := s.svc.UpdateIssue(r.Context(), id, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) deleteIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "issue")
	if !ok {
		return
	}
	if err := s.svc.DeleteIssue(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) replaceLabels(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "issue")
	if !ok {
		return
	}
	var body struct {
		LabelIDs *[]int64 `json:"label_ids"`
		ActorID  *int64   `json:"actor_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.LabelIDs == nil {
		s.writeServiceError(w, r, tracker.NewValidationError("label_ids", "This field is required."))
		return
	}
	labels, err := s.svc.ReplaceLabels(r.Context(), id, *body.LabelIDs, body.ActorID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, labels)
}

func (s *Server) timeline(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "issue")
	if !ok {
		return
	}
	var ascending bool
	switch order := r.URL.Query().Get("order"); order {
	case "", "desc":
	case "asc":
		ascending = true
	default:
		s.writeServiceError(w, r, tracker.NewValidationError("order", "Must be asc or desc."))
		return
	}

	if _, err := s.store.GetIssue(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	events, err := s.store.ListHistory(r.Context(), id, ascending)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) bulkStatus(w http.ResponseWriter, r *http.Request) {
	var in tracker.BulkStatusInput
	if !decodeJSON(w, r, &in) {
		return
	}
	n, err := s.svc.BulkUpdateStatus(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Successfully updated " + strconv.Itoa(n) + " issues",
		"updated_count": n,
	})
}

// importIssues accepts a multipart upload with the CSV in the "file" field.
// It answers 201 when at least one row was imported and 400 otherwise; the
// body is the import result either way.
func (s *Server) importIssues(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer func() { _ = file.Close() }()

	result, err := s.importer.Import(r.Context(), file)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Successful == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}
