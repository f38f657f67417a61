package middleware

import (
	"net/http"
	"time"
)

// HTTPObserver records served requests.
type HTTPObserver interface {
	ObserveHTTP(method, path string, status int, elapsed time.Duration)
}

// Metrics records each request under a fixed route label to keep label cardinality bounded.
func Metrics(observer HTTPObserver, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if observer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)
			observer.ObserveHTTP(r.Method, route, rec.status, time.Since(started))
		})
	}
}
