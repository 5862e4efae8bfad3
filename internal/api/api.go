package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joescharf/tracker/internal/importer"
	"github.com/joescharf/tracker/internal/report"
	"github.com/joescharf/tracker/internal/store"
	"github.com/joescharf/tracker/internal/tracker"
)

const (
	defaultPageSize       = 20
	maxPageSize           = 100
	defaultMaxUploadBytes = 10 << 20
)

// Config tunes the REST API.
type Config struct {
	PageSize       int   // default page size for issue listings
	MaxUploadBytes int64 // upper bound for CSV uploads
}

// Server provides the REST API handlers.
type Server struct {
	svc      *tracker.Service
	store    store.Store
	importer *importer.Importer
	reports  *report.Reporter
	logger   *slog.Logger
	cfg      Config
}

// NewServer creates a new API server. A nil logger falls back to
// slog.Default().
func NewServer(svc *tracker.Service, logger *slog.Logger, cfg Config) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.PageSize > maxPageSize {
		cfg.PageSize = maxPageSize
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Server{
		svc:      svc,
		store:    svc.Store(),
		importer: importer.New(svc.Store(), logger),
		reports:  report.New(svc.Store()),
		logger:   logger,
		cfg:      cfg,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/issues", s.listIssues)
	mux.HandleFunc("POST /api/v1/issues", s.createIssue)
	mux.HandleFunc("POST /api/v1/issues/bulk-status", s.bulkStatus)
	mux.HandleFunc("POST /api/v1/issues/import", s.importIssues)
	mux.HandleFunc("GET /api/v1/issues/{id}", s.getIssue)
	mux.HandleFunc("PATCH /api/v1/issues/{id}", s.updateIssue)
	mux.HandleFunc("DELETE /api/v1/issues/{id}", s.deleteIssue)
	mux.HandleFunc("GET /api/v1/issues/{id}/comments", s.listIssueComments)
	mux.HandleFunc("POST /api/v1/issues/{id}/comments", s.addComment)
	mux.HandleFunc("PUT /api/v1/issues/{id}/labels", s.replaceLabels)
	mux.HandleFunc("GET /api/v1/issues/{id}/timeline", s.timeline)

	mux.HandleFunc("GET /api/v1/comments", s.listComments)
	mux.HandleFunc("GET /api/v1/comments/{id}", s.getComment)

	mux.HandleFunc("GET /api/v1/labels", s.listLabels)
	mux.HandleFunc("POST /api/v1/labels", s.createLabel)
	mux.HandleFunc("GET /api/v1/labels/{id}", s.getLabel)
	mux.HandleFunc("PUT /api/v1/labels/{id}", s.renameLabel)
	mux.HandleFunc("PATCH /api/v1/labels/{id}", s.renameLabel)
	mux.HandleFunc("DELETE /api/v1/labels/{id}", s.deleteLabel)

	mux.HandleFunc("GET /api/v1/users", s.listUsers)
	mux.HandleFunc("POST /api/v1/users", s.createUser)
	mux.HandleFunc("GET /api/v1/users/{id}", s.getUser)
	mux.HandleFunc("DELETE /api/v1/users/{id}", s.deleteUser)

	mux.HandleFunc("GET /api/v1/reports/top-assignees", s.topAssignees)
	mux.HandleFunc("GET /api/v1/reports/latency", s.latency)

	return s.requestLogger(corsMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// pathID parses the {id} path value. Non-numeric ids answer 404 since no
// such resource can exist.
func pathID(w http.ResponseWriter, r *http.Request, kind string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusNotFound, kind+" not found")
		return 0, false
	}
	return id, true
}

// queryID parses an optional numeric query parameter.
func queryID(r *http.Request, key string) (int64, *tracker.ValidationError) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, tracker.NewValidationError(key, "Select a valid choice.")
	}
	return id, nil
}
