package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chatwire/chatwire/internal/chat"
)

// createSessionRequest is the request body for POST /sessions.
type createSessionRequest struct {
	Name            string `json:"name"`
	CensorshipLevel string `json:"censorship_level"`
}

// handleCreateSession creates a named chat session.
//
// Name uniqueness is enforced by the database constraint, not a
// pre-check, so two concurrent creates cannot both succeed. The new
// session is registered immediately so messages and WebSocket attaches
// resolve without a restart.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidFormat, "invalid JSON body")
		return
	}

	session := &chat.Session{
		Name:            req.Name,
		CensorshipLevel: chat.CensorshipLevel(req.CensorshipLevel),
	}
	if user := currentUser(r); user != nil {
		session.CreatedBy = user.ID
	}

	if err := s.sessions.Create(r.Context(), session); err != nil {
		switch {
		case errors.Is(err, chat.ErrSessionNameExists):
			writeError(w, http.StatusUnprocessableEntity, ErrCodeSessionNameTaken,
				"a session with this name already exists")
		case errors.Is(err, chat.ErrInvalidSessionName):
			writeError(w, http.StatusBadRequest, ErrCodeValidation,
				"session name must be 1-100 characters")
		case errors.Is(err, chat.ErrInvalidLevel):
			writeError(w, http.StatusBadRequest, ErrCodeValidation,
				"censorship_level must be low, medium, or high")
		default:
			s.logger.Error("session create failed", "error", err)
			writeInternalError(w, "could not create session")
		}
		return
	}

	s.registry.RegisterSession(*session)
	writeJSON(w, http.StatusCreated, session)
}

// handleListSessions returns a paginated session listing.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidFormat, err.Error())
		return
	}

	page, err := s.sessions.List(r.Context(), params)
	if err != nil {
		s.logger.Error("session list failed", "error", err)
		writeInternalError(w, "could not list sessions")
		return
	}

	writeJSON(w, http.StatusOK, page)
}
