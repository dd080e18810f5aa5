package util

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomString32(t *testing.T) {
	a, err := RandomString32()
	require.NoError(t, err)
	b, err := RandomString32()
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestTrunc(t *testing.T) {
	assert.Equal(t, "hello", Trunc("  hello  ", 10))
	assert.Equal(t, "äbc", Trunc("äbcdef", 4))
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 3, 1, 14, 30, 0, 0, time.Local)
	for _, s := range []string{"2024-03-01 14:30", "01.03.2024 14:30"} {
		got, err := ParseTime(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}

	got, err := ParseTime("2024-03-01T14:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())

	_, err = ParseTime("tomorrow")
	assert.Error(t, err)
}

func TestHeading(t *testing.T) {
	assert.Equal(t, "Title", Heading(strings.NewReader("<p>intro</p><h2>Title</h2><h1>Other</h1>")))
	assert.Equal(t, "A B", Heading(strings.NewReader("<h1>A <em>B</em></h1>")))
	assert.Equal(t, "", Heading(strings.NewReader("<p>no heading</p>")))
}

func TestBased(t *testing.T) {
	var h = Based("/docflow/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/doc/a":
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		case "/add/news":
			w.Header().Set("Location", "/doc/news/first")
			w.Header().Set("Content-Location", "//cdn.example.com/first")
			w.WriteHeader(http.StatusCreated)
		default:
			w.Header().Set("Content-Location", "/doc/news")
			w.Write([]byte("listing"))
		}
	}))

	var get = func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/docflow/doc/a")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/docflow/login", rec.Header().Get("Location"))

	rec = get("/docflow/add/news")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/docflow/doc/news/first", rec.Header().Get("Location"))
	assert.Equal(t, "//cdn.example.com/first", rec.Header().Get("Content-Location"))

	// implicit 200
	rec = get("/docflow/list/news")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/docflow/doc/news", rec.Header().Get("Content-Location"))
	assert.Equal(t, "listing", rec.Body.String())

	rec = get("/docflow")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/docflow/", rec.Header().Get("Location"))

	assert.Equal(t, http.StatusNotFound, get("/docflowx/doc/a").Code)
	assert.Equal(t, http.StatusNotFound, get("/other").Code)
}

func TestBasedEmpty(t *testing.T) {
	var h = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
	rec := httptest.NewRecorder()
	Based("/", h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/doc/a", nil))
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}
