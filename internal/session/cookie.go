package session

import (
	"net/http"
	"time"

	"github.com/regionops/rims/internal/model"
)

// CookieName is the session cookie set on login and cleared on logout.
const CookieName = "rims_session"

// TTL is the cookie lifetime. Identity is re-validated against the directory
// on every privileged request regardless, so revocation does not wait for
// expiry.
const TTL = 8 * time.Hour

// SetCookie attaches the encoded session to the response.
func SetCookie(w http.ResponseWriter, user model.SessionUser, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    Encode(user),
		Path:     "/",
		MaxAge:   int(TTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest decodes the session cookie from the request. Returns nil when
// the cookie is absent or malformed. The caller must still re-validate the
// identity against the directory.
func FromRequest(r *http.Request) *model.SessionUser {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	return Decode(c.Value)
}
