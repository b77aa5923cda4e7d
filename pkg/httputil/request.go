package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// ParseJSON decodes the request body into dest. Decode errors are wrapped
// with %w so callers can still distinguish io.EOF (empty body) from
// malformed input.
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes the request body into dest, answering 400 on
// malformed input. A false return means the response is already written.
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	err := ParseJSON(r, dest)
	if err == nil {
		return true
	}
	WriteBadRequest(w, err.Error())
	return false
}

// ParsePathString returns the named gorilla/mux path variable.
func ParsePathString(r *http.Request, key string) (string, error) {
	if v := mux.Vars(r)[key]; v != "" {
		return v, nil
	}
	return "", fmt.Errorf("missing path parameter: %s", key)
}

// ParsePathStringOrError returns the named path variable, answering 400
// when the route matched without it.
func ParsePathStringOrError(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	v, err := ParsePathString(r, key)
	if err == nil {
		return v, true
	}
	WriteBadRequest(w, err.Error())
	return "", false
}

// ParseQueryString returns the query parameter value, or defaultVal when
// the parameter is absent or blank.
func ParseQueryString(r *http.Request, key, defaultVal string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return defaultVal
}

// RequireNonEmpty answers a 400 validation error when a required request
// field is blank. A true return means the value passed.
func RequireNonEmpty(w http.ResponseWriter, value, fieldName string) bool {
	if value != "" {
		return true
	}
	WriteValidationError(w, fieldName+" is required")
	return false
}
