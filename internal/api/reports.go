package api

import (
	"net/http"
	"strconv"

	"github.com/joescharf/tracker/internal/tracker"
)

func (s *Server) topAssignees(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeServiceError(w, r, tracker.NewValidationError("limit", "A valid integer is required."))
			return
		}
		// An explicit zero is out of range; only an absent limit means the default.
		if n == 0 {
			n = -1
		}
		limit = n
	}
	top, err := s.reports.TopAssignees(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

func (s *Server) latency(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.Latency(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
