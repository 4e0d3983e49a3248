package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics provides observability for the HTTP adapter.
//
// Implementations collect metrics about requests, connection lifecycle,
// backpressure and parse failures. If not provided to the adapter, a no-op
// implementation is used.
//
// Example usage:
//
//	// With metrics enabled
//	m := metrics.NewHTTPMetrics()
//	adapter := http.New(config, m)
//
//	// Without metrics (no-op)
//	adapter := http.New(config, nil)
type HTTPMetrics interface {
	// RecordRequest records a served request. method is "-" when the request
	// could not be parsed.
	RecordRequest(method string, status int, duration time.Duration)

	// RecordParseFailure counts a request rejected by the parser.
	RecordParseFailure(reason string)

	// RecordBytesWritten records response bytes sent.
	RecordBytesWritten(bytes int64)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// SetBusyWorkers updates the number of workers serving a connection.
	SetBusyWorkers(count int)

	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionRejected counts a connection turned away because the
	// worker pool was saturated.
	RecordConnectionRejected()

	// RecordConnectionForceClosed counts a connection closed by shutdown
	// after the grace period.
	RecordConnectionForceClosed()

	// RecordBackoff counts one overload back-off pause of the accept loop.
	RecordBackoff()
}

// httpMetrics is the Prometheus implementation of HTTPMetrics.
type httpMetrics struct {
	requestsTotal          *prometheus.CounterVec
	requestDuration        *prometheus.HistogramVec
	parseFailures          *prometheus.CounterVec
	bytesWritten           prometheus.Counter
	activeConnections      prometheus.Gauge
	busyWorkers            prometheus.Gauge
	connectionsAccepted    prometheus.Counter
	connectionsClosed      prometheus.Counter
	connectionsRejected    prometheus.Counter
	connectionsForceClosed prometheus.Counter
	backoffs               prometheus.Counter
}

// NewHTTPMetrics creates a Prometheus-backed HTTPMetrics on the global
// registry, or a no-op implementation if metrics are disabled.
func NewHTTPMetrics() HTTPMetrics {
	if !IsEnabled() {
		return NewNoopHTTPMetrics()
	}
	return newHTTPMetrics(GetRegistry())
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	return &httpMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittohttp_requests_total",
				Help: "Total number of HTTP requests by method and status code",
			},
			[]string{"method", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittohttp_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds, from accept to response flush",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.5,   // 500ms
					1.0,   // 1s
					5.0,   // 5s
				},
			},
			[]string{"method"},
		),
		parseFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittohttp_parse_failures_total",
				Help: "Total number of requests rejected by the parser, by reason",
			},
			[]string{"reason"},
		),
		bytesWritten: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittohttp_response_bytes_total",
				Help: "Total response bytes written",
			},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "dittohttp_active_connections",
				Help: "Current number of connections being served",
			},
		),
		busyWorkers: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "dittohttp_busy_workers",
				Help: "Current number of workers serving a connection",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittohttp_connections_accepted_total",
				Help: "Total number of connections accepted",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittohttp_connections_closed_total",
				Help: "Total number of connections closed",
			},
		),
		connectionsRejected: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittohttp_connections_rejected_total",
				Help: "Total number of connections rejected because the worker pool was saturated",
			},
		),
		connectionsForceClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittohttp_connections_force_closed_total",
				Help: "Total number of connections force-closed during shutdown timeout",
			},
		),
		backoffs: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittohttp_accept_backoffs_total",
				Help: "Total number of overload back-off pauses of the accept loop",
			},
		),
	}
}

func (m *httpMetrics) RecordRequest(method string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func (m *httpMetrics) RecordParseFailure(reason string) {
	m.parseFailures.WithLabelValues(reason).Inc()
}

func (m *httpMetrics) RecordBytesWritten(bytes int64) {
	m.bytesWritten.Add(float64(bytes))
}

func (m *httpMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *httpMetrics) SetBusyWorkers(count int) {
	m.busyWorkers.Set(float64(count))
}

func (m *httpMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *httpMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

func (m *httpMetrics) RecordConnectionRejected() {
	m.connectionsRejected.Inc()
}

func (m *httpMetrics) RecordConnectionForceClosed() {
	m.connectionsForceClosed.Inc()
}

func (m *httpMetrics) RecordBackoff() {
	m.backoffs.Inc()
}

// noopHTTPMetrics is a no-op implementation of HTTPMetrics with zero overhead.
type noopHTTPMetrics struct{}

// NewNoopHTTPMetrics returns an HTTPMetrics that discards everything.
func NewNoopHTTPMetrics() HTTPMetrics {
	return noopHTTPMetrics{}
}

func (noopHTTPMetrics) RecordRequest(method string, status int, duration time.Duration) {}
func (noopHTTPMetrics) RecordParseFailure(reason string)                                {}
func (noopHTTPMetrics) RecordBytesWritten(bytes int64)                                  {}
func (noopHTTPMetrics) SetActiveConnections(count int32)                                {}
func (noopHTTPMetrics) SetBusyWorkers(count int)                                        {}
func (noopHTTPMetrics) RecordConnectionAccepted()                                       {}
func (noopHTTPMetrics) RecordConnectionClosed()                                         {}
func (noopHTTPMetrics) RecordConnectionRejected()                                       {}
func (noopHTTPMetrics) RecordConnectionForceClosed()                                    {}
func (noopHTTPMetrics) RecordBackoff()                                                  {}
