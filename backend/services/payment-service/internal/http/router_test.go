package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func named(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Handler", name)
		w.WriteHeader(http.StatusOK)
	}
}

type routeObserver struct {
	paths []string
}

func (o *routeObserver) ObserveHTTP(_, path string, _ int, _ time.Duration) {
	o.paths = append(o.paths, path)
}

func testRoutes() Routes {
	return Routes{
		Settle:        named("settle"),
		PaymentStatus: named("status"),
		History:       named("history"),
		PlanChanged:   named("plan-changed"),
		GateFeed:      named("gate-feed"),
		Health:        named("health"),
		Metrics:       named("metrics"),
	}
}

func TestNewRouter_Dispatch(t *testing.T) {
	router := NewRouter(testRoutes())

	tests := []struct {
		method  string
		path    string
		code    int
		handler string
	}{
		{method: http.MethodPost, path: "/api/v1/payments/", code: http.StatusOK, handler: "settle"},
		{method: http.MethodPost, path: "/api/v1/payments", code: http.StatusOK, handler: "settle"},
		{method: http.MethodGet, path: "/api/v1/payments/", code: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/api/v1/payments/status?parking_session_id=1", code: http.StatusOK, handler: "status"},
		{method: http.MethodGet, path: "/api/v1/history/?plate_number=A", code: http.StatusOK, handler: "history"},
		{method: http.MethodGet, path: "/api/v1/history?plate_number=A", code: http.StatusOK, handler: "history"},
		{method: http.MethodPost, path: "/internal/plans/changed", code: http.StatusOK, handler: "plan-changed"},
		{method: http.MethodGet, path: "/ws/gates?gate_id=1", code: http.StatusOK, handler: "gate-feed"},
		{method: http.MethodGet, path: "/health", code: http.StatusOK, handler: "health"},
		{method: http.MethodGet, path: "/metrics", code: http.StatusOK, handler: "metrics"},
		{method: http.MethodDelete, path: "/health", code: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/nope", code: http.StatusNotFound},
		{method: http.MethodPost, path: "/api/v1/payments/refund/42", code: http.StatusNotFound},
		{method: http.MethodGet, path: "/api/v1/history/ABC123", code: http.StatusNotFound},
		{method: http.MethodGet, path: "/api/v1/payments/status/7", code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.handler, rec.Header().Get("X-Handler"))
		})
	}
}

func TestNewRouter_AuthGuardsAPIOnly(t *testing.T) {
	routes := testRoutes()
	routes.APIAuth = func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	router := NewRouter(routes)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/payments/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRouter_ObservesRouteTemplate(t *testing.T) {
	routes := testRoutes()
	obs := &routeObserver{}
	routes.Observer = obs
	router := NewRouter(routes)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/history/?plate_number=ABC123", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, []string{"/api/v1/history/"}, obs.paths)
}
