package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// ParseJSONOrError decodes the request body into dest. On malformed JSON it
// writes a 400 and returns false so the handler can bail out.
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		WriteBadRequest(w, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	return true
}

// ParsePathInt64 extracts an int64 path parameter from the mux route.
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return 0, fmt.Errorf("missing path parameter: %s", key)
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// ParsePathInt64OrError is ParsePathInt64 with the 400 written for the caller.
func ParsePathInt64OrError(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	val, err := ParsePathInt64(r, key)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return 0, false
	}
	return val, true
}

// ParsePathString extracts a string path parameter from the mux route.
func ParsePathString(r *http.Request, key string) (string, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return "", fmt.Errorf("missing path parameter: %s", key)
	}
	return str, nil
}

// ParseQueryInt reads an integer query parameter, falling back to defaultVal
// when the parameter is absent.
func ParseQueryInt(r *http.Request, key string, defaultVal int) (int, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for query param %s: %s", key, str)
	}
	return val, nil
}

// ParseQueryInt64 reads an int64 query parameter with a default.
func ParseQueryInt64(r *http.Request, key string, defaultVal int64) (int64, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for query param %s: %s", key, str)
	}
	return val, nil
}

// ParseQueryString reads a string query parameter with a default.
func ParseQueryString(r *http.Request, key string, defaultVal string) string {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// ParseQueryBool reads a boolean query parameter with a default.
func ParseQueryBool(r *http.Request, key string, defaultVal bool) (bool, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.ParseBool(str)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for query param %s: %s", key, str)
	}
	return val, nil
}

// RequireNonEmpty writes a 400 and returns false when the field is empty.
func RequireNonEmpty(w http.ResponseWriter, value, fieldName string) bool {
	if value == "" {
		WriteValidationError(w, fmt.Sprintf("%s is required", fieldName))
		return false
	}
	return true
}

// RequirePositive writes a 400 and returns false unless value > 0.
func RequirePositive(w http.ResponseWriter, value int64, fieldName string) bool {
	if value <= 0 {
		WriteValidationError(w, fmt.Sprintf("%s must be positive", fieldName))
		return false
	}
	return true
}

// RequireNonZero writes a 400 and returns false when value is zero.
func RequireNonZero(w http.ResponseWriter, value int64, fieldName string) bool {
	if value == 0 {
		WriteValidationError(w, fmt.Sprintf("%s is required", fieldName))
		return false
	}
	return true
}

// Validator reports whether a value is valid, with an error message when not.
type Validator func() (bool, string)

// ValidateAll runs validators in order and writes a 400 for the first failure.
func ValidateAll(w http.ResponseWriter, validators ...Validator) bool {
	for _, validator := range validators {
		if valid, errMsg := validator(); !valid {
			WriteValidationError(w, errMsg)
			return false
		}
	}
	return true
}
