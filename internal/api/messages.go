package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatwire/chatwire/internal/chat"
)

// admitMessageRequest is the request body for POST /messages.
type admitMessageRequest struct {
	SessionID  string `json:"session_id"`
	Content    string `json:"content"`
	SenderType string `json:"sender_type"`
}

// handleAdmitMessage runs a message through the admission pipeline.
//
// The sender identity always comes from the authenticated user; clients
// may mark a message as system-sent but cannot impersonate other users.
func (s *Server) handleAdmitMessage(w http.ResponseWriter, r *http.Request) {
	var req admitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidFormat, "invalid JSON body")
		return
	}

	senderType := chat.SenderType(req.SenderType)
	if req.SenderType == "" {
		senderType = chat.SenderUser
	}

	admit := chat.AdmitRequest{
		SessionID:  req.SessionID,
		Content:    req.Content,
		SenderType: senderType,
	}
	if user := currentUser(r); user != nil {
		admit.SenderID = user.ID
	}

	summary, err := s.pipeline.Admit(r.Context(), admit)
	if err != nil {
		s.writeAdmissionError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, summary)
}

// writeAdmissionError maps pipeline sentinels onto the wire envelope.
func (s *Server) writeAdmissionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, ErrCodeSessionNotFound, "session not found")
	case errors.Is(err, chat.ErrOffensiveContent):
		writeError(w, http.StatusBadRequest, ErrCodeOffensiveContent,
			"message contains offensive content")
	case errors.Is(err, chat.ErrEmptyContent):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "content must not be empty")
	case errors.Is(err, chat.ErrContentTooLong):
		writeError(w, http.StatusBadRequest, ErrCodeValidation,
			"content exceeds the maximum length")
	case errors.Is(err, chat.ErrInvalidSender):
		writeError(w, http.StatusBadRequest, ErrCodeValidation,
			"sender_type must be user or system")
	default:
		s.logger.Error("message admission failed", "error", err)
		writeInternalError(w, "could not admit message")
	}
}

// handleListMessages returns a paginated message listing for one session.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if _, ok := s.registry.LookupMetadata(sessionID); !ok {
		writeError(w, http.StatusNotFound, ErrCodeSessionNotFound, "session not found")
		return
	}

	params, err := parseListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidFormat, err.Error())
		return
	}

	page, err := s.messages.List(r.Context(), sessionID, params)
	if err != nil {
		s.logger.Error("message list failed", "error", err)
		writeInternalError(w, "could not list messages")
		return
	}

	writeJSON(w, http.StatusOK, page)
}
