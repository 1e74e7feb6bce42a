package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/regionops/rims/internal/directory"
	"github.com/regionops/rims/internal/model"
	"github.com/regionops/rims/internal/policy"
	"github.com/regionops/rims/internal/session"
)

type contextKeyAuth string

// SessionUserKey is the context key for the authenticated session identity.
const SessionUserKey contextKeyAuth = "session_user"

// Authenticate validates the session cookie and re-validates the decoded
// identity against the live directory, so role changes and deletions take
// effect immediately instead of waiting for cookie expiry. The refreshed
// identity (not the cookie's claims) is attached to the request context.
// Requests without a valid, live session get a 401 JSON error.
func Authenticate(dir directory.Directory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claimed := session.FromRequest(r)
			if claimed == nil {
				writeAuthError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			user, err := dir.GetUserByUsername(r.Context(), claimed.Username)
			if err != nil {
				if errors.Is(err, directory.ErrNotFound) {
					writeAuthError(w, http.StatusUnauthorized, "Unauthorized")
					return
				}
				writeAuthError(w, http.StatusInternalServerError, "Session validation failed")
				return
			}

			live := user.Session()
			ctx := context.WithValue(r.Context(), SessionUserKey, &live)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin enforces admin-level access. Must run after Authenticate.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetSessionUser(r.Context())
			if user == nil || !policy.IsAdmin(user.Role) {
				writeAuthError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSessionUser extracts the authenticated session identity from the
// context. Returns nil for unauthenticated requests.
func GetSessionUser(ctx context.Context) *model.SessionUser {
	if u, ok := ctx.Value(SessionUserKey).(*model.SessionUser); ok {
		return u
	}
	return nil
}

// writeAuthError writes the standard error envelope. The handler package's
// helpers cannot be imported here (it depends on this package), but the
// envelope type itself lives in model.
func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    status,
			Message: message,
		},
	})
}
