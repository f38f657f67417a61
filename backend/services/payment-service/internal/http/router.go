package httpserver

import (
	"net/http"
	"strings"

	"parkpay/backend/services/payment-service/internal/http/middleware"
)

// Routes groups HTTP handlers.
type Routes struct {
	Settle        http.HandlerFunc
	PaymentStatus http.HandlerFunc
	History       http.HandlerFunc
	PlanChanged   http.HandlerFunc
	GateFeed      http.HandlerFunc
	Health        http.HandlerFunc
	Metrics       http.Handler

	// APIAuth, when set, guards the /api/v1 endpoints.
	APIAuth func(http.Handler) http.Handler
	// Observer, when set, records per-route request metrics.
	Observer middleware.HTTPObserver
}

// NewRouter registers service endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	api := func(route, verb string, h http.HandlerFunc) {
		var handler http.Handler = method(verb, h)
		if routes.APIAuth != nil {
			handler = routes.APIAuth(handler)
		}
		mux.Handle(exact(route), middleware.Metrics(routes.Observer, route)(handler))
	}

	if routes.Settle != nil {
		api("/api/v1/payments/", http.MethodPost, routes.Settle)
		api("/api/v1/payments", http.MethodPost, routes.Settle)
	}
	if routes.PaymentStatus != nil {
		api("/api/v1/payments/status", http.MethodGet, routes.PaymentStatus)
	}
	if routes.History != nil {
		api("/api/v1/history/", http.MethodGet, routes.History)
		api("/api/v1/history", http.MethodGet, routes.History)
	}
	if routes.PlanChanged != nil {
		mux.Handle("/internal/plans/changed", method(http.MethodPost, routes.PlanChanged))
	}
	if routes.GateFeed != nil {
		mux.Handle("/ws/gates", method(http.MethodGet, routes.GateFeed))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	if routes.Metrics != nil {
		mux.Handle("/metrics", method(http.MethodGet, routes.Metrics.ServeHTTP))
	}
	return mux
}

// exact turns a trailing-slash route into a pattern that matches only that path, not its subtree.
func exact(route string) string {
	if strings.HasSuffix(route, "/") {
		return route + "{$}"
	}
	return route
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
