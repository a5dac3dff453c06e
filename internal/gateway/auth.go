package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/sonoglot/sonoglot/internal/auth"
	"github.com/sonoglot/sonoglot/internal/config"
)

// cookieName returns the configured session cookie name.
func (s *Server) cookieName() string {
	if s.cfg != nil && s.cfg.Auth.CookieName != "" {
		return s.cfg.Auth.CookieName
	}
	return config.DefaultCookieName
}

// authEnabled reports whether requests must carry a valid session token.
func (s *Server) authEnabled() bool {
	return s.deps.Auth != nil && s.deps.Auth.Enabled()
}

// guard wraps an API handler with the session-token check. When no password
// is configured the gateway runs open and guard is a pass-through.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authEnabled() {
			next(w, r)
			return
		}
		c, err := r.Cookie(s.cookieName())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "login required")
			return
		}
		if err := s.deps.Auth.Check(c.Value, time.Now()); err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "session expired or invalid")
			return
		}
		next(w, r)
	}
}

type loginRequest struct {
	Password   string `json:"password,omitempty"`
	AccessCode string `json:"accessCode,omitempty"`
}

// handleLogin validates the password or the current one-time access code and
// sets the session cookie. When a code was redeemed, the response carries the
// next code to show the user.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.authEnabled() {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "authRequired": false})
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	credential := req.Password
	if credential == "" {
		credential = req.AccessCode
	}
	if credential == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "password or accessCode is required")
		return
	}

	token, nextCode, err := s.deps.Auth.Login(credential, time.Now())
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid password or access code")
			return
		}
		writeError(w, http.StatusInternalServerError, "login_failed", err.Error())
		return
	}

	ttl := config.DefaultTokenTTL
	if s.cfg != nil && s.cfg.Auth.TokenTTL > 0 {
		ttl = s.cfg.Auth.TokenTTL
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	body := map[string]any{"authenticated": true, "authRequired": true}
	if nextCode != "" {
		body["nextAccessCode"] = nextCode
	}
	writeJSON(w, http.StatusOK, body)
}

// handleCheckAuth reports whether the request carries a valid session, so the
// client can decide between the login screen and the app.
func (s *Server) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	if !s.authEnabled() {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "authRequired": false})
		return
	}
	c, err := r.Cookie(s.cookieName())
	authenticated := err == nil && s.deps.Auth.Check(c.Value, time.Now()) == nil
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": authenticated, "authRequired": true})
}
