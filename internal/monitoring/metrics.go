package monitoring

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide prometheus collector set. It also
// satisfies the MetricsRecorder interfaces of the settlement and
// accrual services.
type Metrics struct {
	// HTTP metrics
	requestDuration *prometheus.HistogramVec
	requestCount    *prometheus.CounterVec
	errorCount      *prometheus.CounterVec

	// Settlement metrics
	settlementCount *prometheus.CounterVec

	// Accrual metrics
	accrualRunDuration prometheus.Histogram
	accrualCredited    prometheus.Counter
	accrualInterest    prometheus.Counter
	accrualLastRun     prometheus.Gauge

	// System metrics
	memoryUsage    *prometheus.GaugeVec
	goroutineCount prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"handler", "method", "status"},
		),

		requestCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		errorCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "error_count_total",
				Help:      "Total number of errors",
			},
			[]string{"type", "code"},
		),

		settlementCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settlements_total",
				Help:      "Settlement decisions by transaction type and outcome",
			},
			[]string{"type", "outcome"},
		),

		accrualRunDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "accrual_run_duration_seconds",
				Help:      "Duration of daily accrual runs",
				Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300},
			},
		),

		accrualCredited: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "accrual_portfolios_credited_total",
				Help:      "Portfolios credited by the accrual engine",
			},
		),

		accrualInterest: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "accrual_interest_credited_total",
				Help:      "Total interest credited by the accrual engine",
			},
		),

		accrualLastRun: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "accrual_last_run_timestamp_seconds",
				Help:      "Unix time of the last completed accrual run",
			},
		),

		memoryUsage: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "memory_usage_bytes",
				Help:      "Current memory usage",
			},
			[]string{"type"},
		),

		goroutineCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "goroutine_count",
				Help:      "Number of goroutines",
			},
		),
	}
}

// ObserveRequest records HTTP request metrics
func (m *Metrics) ObserveRequest(handler, method string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(handler, method, code).Observe(duration.Seconds())
	m.requestCount.WithLabelValues(handler, method, code).Inc()
}

// ObserveError records error metrics
func (m *Metrics) ObserveError(errorType, errorCode string) {
	m.errorCount.WithLabelValues(errorType, errorCode).Inc()
}

// RecordSettlement records a settlement decision outcome.
func (m *Metrics) RecordSettlement(txType, outcome string) {
	m.settlementCount.WithLabelValues(txType, outcome).Inc()
}

// RecordAccrualRun records the result of a daily accrual run.
func (m *Metrics) RecordAccrualRun(duration time.Duration, credited int, totalInterest float64) {
	m.accrualRunDuration.Observe(duration.Seconds())
	m.accrualCredited.Add(float64(credited))
	m.accrualInterest.Add(totalInterest)
	m.accrualLastRun.SetToCurrentTime()
}

// UpdateSystemMetrics updates system-level metrics
func (m *Metrics) UpdateSystemMetrics() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.memoryUsage.WithLabelValues("heap_alloc").Set(float64(mem.HeapAlloc))
	m.memoryUsage.WithLabelValues("heap_inuse").Set(float64(mem.HeapInuse))
	m.memoryUsage.WithLabelValues("heap_idle").Set(float64(mem.HeapIdle))
	m.memoryUsage.WithLabelValues("heap_released").Set(float64(mem.HeapReleased))

	m.goroutineCount.Set(float64(runtime.NumGoroutine()))
}

// MetricsHandler returns an HTTP handler for exposing metrics
func (m *Metrics) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsCollection starts periodic collection of system metrics
func (m *Metrics) StartMetricsCollection(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			m.UpdateSystemMetrics()
		}
	}()
}
