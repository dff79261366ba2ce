package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerMetrics collects request outcomes for a running server.
//
// Route labels carry the registered pattern, never the concrete request
// path, to keep label cardinality bounded.
type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight      prometheus.Gauge
	reqTotal      *prometheus.CounterVec
	reqDur        *prometheus.HistogramVec
	faultsTotal   prometheus.Counter
	timeoutsTotal prometheus.Counter
	limitsTotal   *prometheus.CounterVec
}

// New returns a fresh registry with standard Go and process collectors
// plus the server's own request metrics.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		faultsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_handler_faults_total",
			Help: "Total number of recovered handler panics",
		}),
		timeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_request_timeouts_total",
			Help: "Total requests cut off at the request timeout",
		}),
		limitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_limit_violations_total",
			Help: "Total requests refused at a protective limit, by kind",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.faultsTotal,
		m.timeoutsTotal,
		m.limitsTotal,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

// Handler serves the collected metrics in Prometheus exposition format.
func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

func (m *ServerMetrics) IncInFlight() {
	m.inflight.Inc()
}

func (m *ServerMetrics) DecInFlight() {
	m.inflight.Dec()
}

// ObserveRequest records one finished request.
func (m *ServerMetrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.reqTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.reqDur.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *ServerMetrics) IncFault() {
	m.faultsTotal.Inc()
}

func (m *ServerMetrics) IncTimeout() {
	m.timeoutsTotal.Inc()
}

// IncLimitViolation counts a request refused at a protective limit,
// kind naming the limit, e.g. "body" or "rate".
func (m *ServerMetrics) IncLimitViolation(kind string) {
	m.limitsTotal.WithLabelValues(kind).Inc()
}
