package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/chatwire/chatwire/internal/audit"
	"github.com/chatwire/chatwire/internal/auth"
)

// minPasswordLength is the minimum accepted password length for registration.
const minPasswordLength = 8

// defaultTokenTTLMinutes applies when the configured TTL is zero.
const defaultTokenTTLMinutes = 15

// registerRequest is the request body for POST /auth/register.
type registerRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /auth/login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// userResponse is the wire shape for user records.
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// handleRegister creates a new account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
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
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("password hash failed", "error", err)
		writeInternalError(w, "could not create account")
		return
	}

	user := &auth.User{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, "email is already registered")
			return
		}
		s.logger.Error("user create failed", "error", err)
		writeInternalError(w, "could not create account")
		return
	}

	s.recordAudit(r, user.Email, audit.ActionRegister, true)
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// handleLogin authenticates a user and returns a signed access token.
//
// When lockout is enabled, accounts with too many recent failures are
// refused before the password is even checked; the attempt is recorded
// as blocked in the audit trail.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidFormat, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "email and password are required")
		return
	}

	if s.secCfg.LoginAttempts.Enabled {
		window := time.Duration(s.secCfg.LoginAttempts.WindowMinutes) * time.Minute
		failures, err := s.loginAttempts.CountRecentFailures(r.Context(), req.Email, window)
		if err != nil {
			s.logger.Error("login attempt lookup failed", "error", err)
			writeInternalError(w, "could not process login")
			return
		}
		if failures >= s.secCfg.LoginAttempts.Max {
			s.recordAudit(r, req.Email, audit.ActionLoginBlocked, false)
			writeError(w, http.StatusTooManyRequests, ErrCodeTooManyAttempts,
				"too many failed attempts, try again later")
			return
		}
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		s.failLogin(w, r, req.Email)
		return
	}

	match, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !match {
		s.failLogin(w, r, req.Email)
		return
	}
	if !user.IsActive {
		s.failLogin(w, r, req.Email)
		return
	}

	ttlMinutes := s.secCfg.JWT.AccessTokenTTL
	if ttlMinutes <= 0 {
		ttlMinutes = defaultTokenTTLMinutes
	}
	ttl := time.Duration(ttlMinutes) * time.Minute

	token, err := auth.GenerateAccessToken(user, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		writeInternalError(w, "could not generate token")
		return
	}

	s.recordLoginAttempt(r, req.Email, true)
	s.recordAudit(r, user.Email, audit.ActionLogin, true)

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
	})
}

// failLogin records a failed attempt and writes the uniform 401 response.
// The response never reveals whether the account exists.
func (s *Server) failLogin(w http.ResponseWriter, r *http.Request, email string) {
	s.recordLoginAttempt(r, email, false)
	s.recordAudit(r, email, audit.ActionLogin, false)
	writeUnauthorized(w, "invalid credentials")
}

// handleLogout revokes the current token's jti.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := currentClaims(r)
	user := currentUser(r)
	if claims == nil || user == nil {
		writeUnauthorized(w, "not authenticated")
		return
	}

	expiresAt := time.Now().Add(time.Duration(defaultTokenTTLMinutes) * time.Minute)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.revokedTokens.Revoke(r.Context(), claims.ID, user.ID, expiresAt); err != nil {
		s.logger.Error("token revocation failed", "error", err)
		writeInternalError(w, "could not revoke token")
		return
	}

	s.recordAudit(r, user.Email, audit.ActionLogout, true)
	w.WriteHeader(http.StatusNoContent)
}

// recordLoginAttempt stores the attempt when tracking is configured.
func (s *Server) recordLoginAttempt(r *http.Request, email string, success bool) {
	if s.loginAttempts == nil {
		return
	}
	if err := s.loginAttempts.Record(r.Context(), email, clientIP(r), success); err != nil {
		s.logger.Warn("login attempt record failed", "error", err)
	}
}

// recordAudit writes a security event to the audit trail, if configured.
func (s *Server) recordAudit(r *http.Request, username, action string, success bool) {
	if s.audit == nil {
		return
	}
	event := &audit.Event{
		Username:  username,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Endpoint:  r.URL.Path,
		Method:    r.Method,
		Action:    action,
		Success:   success,
	}
	if err := s.audit.Create(r.Context(), event); err != nil {
		s.logger.Warn("audit write failed", "action", action, "error", err)
	}
}

// clientIP extracts the remote address without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
