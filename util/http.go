package util

import (
	"net/http"
	"strings"
)

// locationHeaders point back into the served tree.
var locationHeaders = []string{"Location", "Content-Location"}

// basedWriter prepends base to location headers once, before the header is sent.
type basedWriter struct {
	http.ResponseWriter
	base        string
	wroteHeader bool
}

func (w *basedWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		for _, key := range locationHeaders {
			if loc := w.Header().Get(key); strings.HasPrefix(loc, "/") && !strings.HasPrefix(loc, "//") {
				w.Header().Set(key, w.base+loc)
			}
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *basedWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(p)
}

// Based serves h below base. The base itself redirects to base/, other requests
// outside of base get a 404. Absolute Location and Content-Location headers of
// responses are prefixed with base. An empty base returns h.
func Based(base string, h http.Handler) http.Handler {
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		return h
	}
	var stripped = http.StripPrefix(base, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(&basedWriter{ResponseWriter: w, base: base}, r)
	}))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == base {
			http.Redirect(w, r, base+"/", http.StatusMovedPermanently)
			return
		}
		if !strings.HasPrefix(r.URL.Path, base+"/") {
			http.NotFound(w, r)
			return
		}
		stripped.ServeHTTP(w, r)
	})
}
