// Package api implements the Vouch REST API using chi.
package api

import (
	"fmt"
	"net/http"
	"time"
)

// ReferenceMaxAge is how long clients may cache taxonomy responses.
const ReferenceMaxAge = 5 * time.Minute

// CacheControl returns middleware that marks GET responses as publicly
// cacheable for maxAge. Error responses override it.
func CacheControl(maxAge time.Duration) func(http.Handler) http.Handler {
	value := fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore marks responses as uncacheable.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
