package middleware

import (
	"net/http"
)

// Revalidate lets clients keep a copy but forces a conditional request every
// time, so polling clients get a 304 against the session ETag instead of a
// stale body.
func Revalidate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}
