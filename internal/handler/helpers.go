package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/regionops/rims/internal/directory"
	"github.com/regionops/rims/internal/model"
)

// writeJSON serializes v as JSON with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response in the standard envelope.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeDirectoryError maps a directory error value to its transport status.
// The directory returns errors as values from a fixed taxonomy; status
// mapping is the calling layer's decision and lives only here.
func writeDirectoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, directory.ErrInvalidInput),
		errors.Is(err, directory.ErrDuplicateUsername):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, directory.ErrInvalidCredentials),
		errors.Is(err, directory.ErrInactiveAccount):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, directory.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, directory.ErrSelfLockout),
		errors.Is(err, directory.ErrSelfDelete),
		errors.Is(err, directory.ErrLastAdmin):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

// readJSON decodes the request body as JSON into v, closing the body.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryInt extracts an integer query parameter, falling back to defaultVal.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// clampInt constrains val to [min, max].
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
