package http

import (
	"fmt"
	"net/http"

	"earntracker/internal/core"
	"earntracker/internal/services"
)

type eventRequest struct {
	Kind        core.EventKind `json:"kind"`
	Description string         `json:"description"`
	Date        core.Date      `json:"date"`
	Completed   bool           `json:"completed"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	status, err := services.ParseEventStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	list, err := s.events.List(r.Context(), userIDFrom(r.Context()), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleUpcomingEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	n := 0
	if limit != nil {
		n = *limit
	}
	list, err := s.events.Upcoming(r.Context(), userIDFrom(r.Context()), n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.events.Create(r.Context(), core.Event{
		UserID:      userIDFrom(r.Context()),
		Kind:        req.Kind,
		Description: sanitizeInput(req.Description),
		Date:        req.Date,
		Completed:   req.Completed,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var p core.EventPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	sanitizePtr(p.Description)

	updated, err := s.events.Update(r.Context(), userIDFrom(r.Context()), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.events.Delete(r.Context(), userIDFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
