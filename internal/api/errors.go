package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/joescharf/tracker/internal/importer"
	"github.com/joescharf/tracker/internal/store"
	"github.com/joescharf/tracker/internal/tracker"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type conflictResponse struct {
	Error          string            `json:"error"`
	Fields         map[string]string `json:"fields"`
	CurrentVersion int               `json:"current_version"`
}

// writeServiceError maps domain errors to HTTP responses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *store.VersionConflictError
	var invalid *tracker.ValidationError
	var structural *importer.StructuralError

	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, conflictResponse{
			Error: conflict.Error(),
			Fields: map[string]string{
				"version": fmt.Sprintf("Version mismatch. Current version is %d.", conflict.Current),
			},
			CurrentVersion: conflict.Current,
		})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: invalid.Error(), Fields: invalid.Fields})
	case errors.As(err, &structural):
		writeError(w, http.StatusBadRequest, structural.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrTransient):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, retry the request")
	default:
		s.logger.Error("request failed",
			"request_id", RequestIDFromContext(r.Context()), "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
