package api

import (
	"encoding/json"
	"net/http"

	"github.com/chatwire/chatwire/internal/auth"
)

// getOrCreateUserRequest is the request body for POST /users.
type getOrCreateUserRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// handleGetOrCreateUser resolves a chat participant by email, creating
// the record if it does not exist yet. Participants created this way
// have no password and cannot log in; they exist so messages can carry
// a stable sender identity.
func (s *Server) handleGetOrCreateUser(w http.ResponseWriter, r *http.Request) {
	var req getOrCreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidFormat, "invalid JSON body")
		return
	}

	if !auth.IsValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "invalid email address")
		return
	}
	if !auth.IsValidFullName(req.FullName) {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "full name must be 1-100 characters")
		return
	}

	user, err := s.users.GetOrCreate(r.Context(), &auth.User{
		Email:    req.Email,
		FullName: req.FullName,
		IsActive: true,
	})
	if err != nil {
		s.logger.Error("get-or-create user failed", "error", err)
		writeInternalError(w, "could not resolve user")
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}
