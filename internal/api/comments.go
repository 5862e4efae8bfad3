package api

import (
	"net/http"

	"github.com/joescharf/tracker/internal/store"
	"github.com/joescharf/tracker/internal/tracker"
)

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "issue")
	if !ok {
		return
	}
	var in tracker.AddCommentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	comment, err := s.svc.AddComment(r.Context(), id, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) listIssueComments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "issue")
	if !ok {
		return
	}
	if _, err := s.store.GetIssue(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	comments, err := s.store.ListComments(r.Context(), store.CommentListFilter{IssueID: id})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	var filter store.CommentListFilter
	var verr *tracker.ValidationError
	if filter.IssueID, verr = queryID(r, "issue"); verr != nil {
		s.writeServiceError(w, r, verr)
		return
	}
	if filter.AuthorID, verr = queryID(r, "author"); verr != nil {
		s.writeServiceError(w, r, verr)
		return
	}
	comments, err := s.store.ListComments(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) getComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "comment")
	if !ok {
		return
	}
	comment, err := s.store.GetComment(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}
