package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric molscout exports.
type AppMetrics struct {
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	ChemistryOperationDuration HistogramVec
	ChemistryWorkersBusy       GaugeVec

	PubChemRequestsTotal   CounterVec
	PubChemRequestDuration HistogramVec

	RateLimitRejectedTotal CounterVec
	ErrorsTotal            CounterVec

	GRPCRequestsTotal CounterVec
}

var (
	DefaultHTTPDurationBuckets      = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultChemistryDurationBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}
	DefaultUpstreamDurationBuckets  = []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30}
)

// NewAppMetrics registers all metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")

	m.ChemistryOperationDuration = collector.RegisterHistogram("chemistry_operation_duration_seconds", "Duration of toolkit operations", DefaultChemistryDurationBuckets, "operation")
	m.ChemistryWorkersBusy = collector.RegisterGauge("chemistry_workers_busy", "Chemistry worker slots in use")

	m.PubChemRequestsTotal = collector.RegisterCounter("pubchem_requests_total", "PubChem requests by operation and outcome", "operation", "outcome")
	m.PubChemRequestDuration = collector.RegisterHistogram("pubchem_request_duration_seconds", "PubChem request duration", DefaultUpstreamDurationBuckets, "operation")

	m.RateLimitRejectedTotal = collector.RegisterCounter("ratelimit_rejected_total", "Requests rejected by the rate limiter", "backend")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors by component and code", "component", "code")

	m.GRPCRequestsTotal = collector.RegisterCounter("grpc_requests_total", "gRPC requests by service, method and status code", "service", "method", "code")

	return m
}

// NewNoopMetrics returns metrics that record nothing.
func NewNoopMetrics() *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:          noopCounterVec{},
		HTTPRequestDuration:        noopHistogramVec{},
		HTTPActiveRequests:         noopGaugeVec{},
		ChemistryOperationDuration: noopHistogramVec{},
		ChemistryWorkersBusy:       noopGaugeVec{},
		PubChemRequestsTotal:       noopCounterVec{},
		PubChemRequestDuration:     noopHistogramVec{},
		RateLimitRejectedTotal:     noopCounterVec{},
		ErrorsTotal:                noopCounterVec{},
		GRPCRequestsTotal:          noopCounterVec{},
	}
}

// ObserveHTTPRequest records one completed HTTP request.
func (m *AppMetrics) ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// ObserveChemistry records the duration of one toolkit operation.
func (m *AppMetrics) ObserveChemistry(operation string, d time.Duration) {
	m.ChemistryOperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordPubChemRequest records one outbound PubChem call.
func (m *AppMetrics) RecordPubChemRequest(operation, outcome string, d time.Duration) {
	m.PubChemRequestsTotal.WithLabelValues(operation, outcome).Inc()
	m.PubChemRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordError counts an error by component and error code.
func (m *AppMetrics) RecordError(component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

// RecordGRPCRequest counts one finished gRPC call.
func (m *AppMetrics) RecordGRPCRequest(service, method, code string) {
	m.GRPCRequestsTotal.WithLabelValues(service, method, code).Inc()
}
