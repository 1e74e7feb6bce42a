// Package session encodes the session identity into the cookie carrier and
// back. The encoding is plain base64url JSON with no signature: a token is
// encoded data, not a signed credential, and anyone who can set a cookie can
// forge one. That is an accepted, documented limitation of the current
// design; the server re-validates every decoded identity against the live
// directory before trusting it.
package session

import (
	"encoding/base64"
	"encoding/json"

	"github.com/regionops/rims/internal/model"
)

// Encode serializes the session identity into a URL-safe token. Pure and
// deterministic; the inverse of Decode.
func Encode(user model.SessionUser) string {
	payload, err := json.Marshal(user)
	if err != nil {
		// model.SessionUser contains only strings; Marshal cannot fail.
		panic("session: marshal session user: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(payload)
}

// Decode parses a session token. Returns nil for anything malformed:
// bad base64, bad JSON, or a structurally incomplete payload. Decoding
// untrusted input is a normal outcome, not an error.
func Decode(token string) *model.SessionUser {
	if token == "" {
		return nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		// Tolerate padded variants of the same alphabet.
		raw, err = base64.URLEncoding.DecodeString(token)
		if err != nil {
			return nil
		}
	}

	var user model.SessionUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil
	}
	if user.ID == "" || user.Username == "" || user.Name == "" || !user.Role.Valid() {
		return nil
	}
	return &user
}
