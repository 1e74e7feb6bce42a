package handler

import (
	"net/http"
	"strings"

	"github.com/regionops/rims/internal/directory"
	"github.com/regionops/rims/internal/server/middleware"
	"github.com/regionops/rims/internal/session"
)

// AuthHandler serves login, logout, and session introspection.
type AuthHandler struct {
	dir directory.Directory

	// secureCookies marks session cookies Secure; enabled outside dev mode.
	secureCookies bool
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(dir directory.Directory, secureCookies bool) *AuthHandler {
	return &AuthHandler{dir: dir, secureCookies: secureCookies}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a username/password pair and sets the session cookie.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.dir.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeDirectoryError(w, err)
		return
	}

	session.SetCookie(w, *user, h.secureCookies)
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": user})
}

// Logout records the logout when a valid session is present and clears the
// cookie either way.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if claimed := session.FromRequest(r); claimed != nil {
		// Re-validate before attributing the audit entry to the claimed user.
		if user, err := h.dir.GetUserByUsername(r.Context(), claimed.Username); err == nil {
			_ = h.dir.RecordLogout(r.Context(), user.Session())
		}
	}

	session.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// Session returns the live session identity, or null when the cookie is
// missing, malformed, or no longer matches a directory account.
// GET /api/v1/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claimed := session.FromRequest(r)
	if claimed == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"session": nil})
		return
	}

	user, err := h.dir.GetUserByUsername(r.Context(), claimed.Username)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"session": nil})
		return
	}

	live := user.Session()
	writeJSON(w, http.StatusOK, map[string]interface{}{"session": live})
}

// viewer is a convenience for handlers that embed the acting identity in
// their responses.
func viewer(r *http.Request) interface{} {
	if u := middleware.GetSessionUser(r.Context()); u != nil {
		return u
	}
	return nil
}
