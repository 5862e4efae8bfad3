package api

import "net/http"

type labelRequest struct {
	Name string `json:"name"`
}

func (s *Server) listLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.store.ListLabels(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, labels)
}

func (s *Server) createLabel(w http.ResponseWriter, r *http.Request) {
	var body labelRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	label, err := s.svc.CreateLabel(r.Context(), body.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, label)
}

func (s *Server) getLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "label")
	if !ok {
		return
	}
	label, err := s.store.GetLabel(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, label)
}

func (s *Server) renameLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "label")
	if !ok {
		return
	}
	var body labelRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	label, err := s.svc.RenameLabel(r.Context(), id, body.Name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, label)
}

func (s *Server) deleteLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "label")
	if !ok {
		return
	}
	if err := s.svc.DeleteLabel(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
