package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONOrError(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"clip"}`))
		w := httptest.NewRecorder()

		var p payload
		ok := ParseJSONOrError(w, req, &p)

		require.True(t, ok)
		assert.Equal(t, "clip", p.Name)
	})

	t.Run("malformed body writes 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		w := httptest.NewRecorder()

		var p payload
		ok := ParseJSONOrError(w, req, &p)

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid JSON")
	})
}

func TestParsePathInt64(t *testing.T) {
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "42"})

	id, err := ParsePathInt64(req, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = ParsePathInt64(req, "missing")
	assert.Error(t, err)

	bad := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "abc"})
	_, err = ParsePathInt64(bad, "id")
	assert.Error(t, err)
}

func TestParsePathInt64OrError(t *testing.T) {
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "not-a-number"})
	w := httptest.NewRecorder()

	_, ok := ParsePathInt64OrError(w, req, "id")

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePathString(t *testing.T) {
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"token": "abc123"})

	val, err := ParsePathString(req, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc123", val)

	_, err = ParsePathString(req, "missing")
	assert.Error(t, err)
}

func TestParseQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=50&cursor=999&sort=title&reviewed=true", nil)

	limit, err := ParseQueryInt(req, "limit", 20)
	require.NoError(t, err)
	assert.Equal(t, 50, limit)

	missing, err := ParseQueryInt(req, "offset", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, missing)

	cursor, err := ParseQueryInt64(req, "cursor", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(999), cursor)

	assert.Equal(t, "title", ParseQueryString(req, "sort", "recent"))
	assert.Equal(t, "recent", ParseQueryString(req, "order", "recent"))

	reviewed, err := ParseQueryBool(req, "reviewed", false)
	require.NoError(t, err)
	assert.True(t, reviewed)
}

func TestParseQueryHelpersRejectBadValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=many&reviewed=maybe", nil)

	_, err := ParseQueryInt(req, "limit", 20)
	assert.Error(t, err)

	_, err = ParseQueryBool(req, "reviewed", false)
	assert.Error(t, err)
}

func TestRequireHelpers(t *testing.T) {
	t.Run("non-empty", func(t *testing.T) {
		w := httptest.NewRecorder()
		assert.True(t, RequireNonEmpty(w, "value", "name"))

		w = httptest.NewRecorder()
		assert.False(t, RequireNonEmpty(w, "", "name"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "name is required")
	})

	t.Run("positive", func(t *testing.T) {
		w := httptest.NewRecorder()
		assert.True(t, RequirePositive(w, 1, "id"))

		w = httptest.NewRecorder()
		assert.False(t, RequirePositive(w, 0, "id"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-zero", func(t *testing.T) {
		w := httptest.NewRecorder()
		assert.True(t, RequireNonZero(w, -5, "delta"))

		w = httptest.NewRecorder()
		assert.False(t, RequireNonZero(w, 0, "delta"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestValidateAll(t *testing.T) {
	pass := func() (bool, string) { return true, "" }
	fail := func() (bool, string) { return false, "limit must be positive" }

	w := httptest.NewRecorder()
	assert.True(t, ValidateAll(w, pass, pass))

	w = httptest.NewRecorder()
	assert.False(t, ValidateAll(w, pass, fail))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "limit must be positive")
}
