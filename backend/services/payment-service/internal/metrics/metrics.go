package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parkpay/backend/services/payment-service/internal/models"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	SettlementsTotal   *prometheus.CounterVec
	SettlementDuration *prometheus.HistogramVec
	PlanLookupsTotal   *prometheus.CounterVec
	GateClients        prometheus.Gauge

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SettlementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parkpay_settlements_total",
				Help: "Settlement requests by outcome status and source",
			},
			[]string{"status", "source"},
		),
		SettlementDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parkpay_settlement_duration_seconds",
				Help:    "Time to decide and record a settlement",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		PlanLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parkpay_plan_lookups_total",
				Help: "Plan status lookups by result (active, inactive, unknown, cache_hit)",
			},
			[]string{"result"},
		),
		GateClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parkpay_gate_feed_clients",
			Help: "Connected gate display clients",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parkpay_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parkpay_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SettlementsTotal,
		m.SettlementDuration,
		m.PlanLookupsTotal,
		m.GateClients,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Registry exposes the registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSettlement implements service.SettlementObserver.
func (m *Metrics) ObserveSettlement(status models.SettlementStatus, source models.PaymentSource, elapsed time.Duration) {
	m.SettlementsTotal.WithLabelValues(string(status), string(source)).Inc()
	m.SettlementDuration.WithLabelValues(string(source)).Observe(elapsed.Seconds())
}

// ObservePlanLookup implements clients.PlanLookupObserver.
func (m *Metrics) ObservePlanLookup(result string) {
	m.PlanLookupsTotal.WithLabelValues(result).Inc()
}

// SetGateClients implements ws.ClientGauge.
func (m *Metrics) SetGateClients(n int) {
	m.GateClients.Set(float64(n))
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
