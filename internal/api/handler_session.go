package api

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/homecrate/homecrate/internal/inventory"
	"github.com/homecrate/homecrate/internal/session"
)

// SessionHandler serves login and logout. It is only mounted when a
// password is configured.
type SessionHandler struct {
	sessions *session.Store
	password string
	ttl      time.Duration
	logger   *slog.Logger
}

func NewSessionHandler(sessions *session.Store, password string, ttl time.Duration, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, password: password, ttl: ttl, logger: logger}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login checks the shared password and issues a session cookie.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, inventory.KindValidation, "malformed login body")
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) != 1 {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid password")
		return
	}

	token, err := h.sessions.Create(r.Context())
	if err != nil {
		h.logger.Error("session create failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, inventory.KindStoreUnavailable, "session store unavailable")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Logout revokes the session, if any, and clears the cookie. Always
// succeeds from the client's point of view.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("session delete failed", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
