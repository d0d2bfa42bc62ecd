package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/eloquentai/finchat/internal/auth"
	"github.com/eloquentai/finchat/internal/log"
)

// authHandler holds dependencies for the auth endpoints.
type authHandler struct {
	sessions *auth.Store
	logger   log.Logger
}

// resolveSession resolves the caller's session from the Authorization
// header. The scheme is case-insensitive: "Bearer <jwt>" verifies a
// token, "Session <id>" looks up the raw session id. A missing or
// malformed header, an unknown scheme, or a failed lookup all mean
// anonymous access, never an error. Successful resolution refreshes the
// session's activity timestamp.
func resolveSession(store *auth.Store, r *http.Request, logger log.Logger) *auth.Session {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil
	}

	scheme, value, found := strings.Cut(header, " ")
	if !found {
		return nil
	}

	switch strings.ToLower(scheme) {
	case "bearer":
		sess, err := store.VerifyToken(value)
		if err != nil {
			logger.Debug("token verification failed", "error", err)
			return nil
		}
		return sess
	case "session":
		return store.Get(value)
	default:
		return nil
	}
}

// loginRequest is the request body for POST /api/v1/auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionCreatedResponse is returned by login and anonymous session
// creation.
type sessionCreatedResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	UserType  string `json:"user_type"`
	Message   string `json:"message"`
}

// login handles POST /api/v1/auth/login.
func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	sess, err := h.sessions.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", h.logger)
			return
		}
		h.logger.Error("authenticating user", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "login failed", h.logger)
		return
	}

	token, err := h.sessions.IssueToken(sess.ID)
	if err != nil {
		h.logger.Error("issuing token", "error", err, "session_id", sess.ID)
		WriteError(w, http.StatusInternalServerError, "internal_error", "login failed", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, sessionCreatedResponse{
		Success:   true,
		SessionID: sess.ID,
		Token:     token,
		UserType:  sess.UserType,
		Message:   "Login successful",
	}, h.logger)
}

// anonymous handles POST /api/v1/auth/anonymous.
func (h *authHandler) anonymous(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Create("", nil)

	token, err := h.sessions.IssueToken(sess.ID)
	if err != nil {
		h.logger.Error("issuing token", "error", err, "session_id", sess.ID)
		WriteError(w, http.StatusInternalServerError, "internal_error", "failed to create anonymous session", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, sessionCreatedResponse{
		Success:   true,
		SessionID: sess.ID,
		Token:     token,
		UserType:  sess.UserType,
		Message:   "Anonymous session created",
	}, h.logger)
}

// session handles GET /api/v1/auth/session.
func (h *authHandler) session(w http.ResponseWriter, r *http.Request) {
	sess := resolveSession(h.sessions, r, h.logger)
	if sess == nil {
		WriteError(w, http.StatusUnauthorized, "unauthorized",
			"No valid session found. Please login or create an anonymous session.", h.logger)
		return
	}

	stats, ok := h.sessions.Stats(sess.ID)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized",
			"No valid session found. Please login or create an anonymous session.", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, stats, h.logger)
}

// logout handles POST /api/v1/auth/logout. Idempotent: logging out a
// session that already vanished still succeeds.
func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	sess := resolveSession(h.sessions, r, h.logger)
	if sess == nil {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "No active session found", h.logger)
		return
	}

	message := "Logout successful"
	if !h.sessions.Delete(sess.ID) {
		message = "Session already expired"
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": message}, h.logger)
}

// authStatsResponse is the payload for GET /api/v1/auth/stats.
type authStatsResponse struct {
	auth.AggregateStats
	ExpiredSessionsCleaned int `json:"expired_sessions_cleaned"`
}

// stats handles GET /api/v1/auth/stats. Expired sessions are swept
// before counting so the numbers reflect live sessions only.
func (h *authHandler) stats(w http.ResponseWriter, r *http.Request) {
	cleaned := h.sessions.SweepExpired()

	WriteJSON(w, http.StatusOK, authStatsResponse{
		AggregateStats:         h.sessions.AllStats(),
		ExpiredSessionsCleaned: cleaned,
	}, h.logger)
}

// demoCredentials handles GET /api/v1/auth/demo-credentials.
func (h *authHandler) demoCredentials(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"email":            auth.DemoEmail,
		"password":         auth.DemoPassword,
		"note":             "Use these credentials to test authenticated features",
		"anonymous_option": "Use POST /api/v1/auth/anonymous for anonymous access",
	}, h.logger)
}
