package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// OptimizerRuns counts finished optimizations by algorithm and outcome
	OptimizerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "optimizer_runs_total", Help: "Optimizer runs by algorithm and outcome."},
		[]string{"algorithm", "outcome"},
	)
	// OptimizerDuration records optimizer wall time in seconds
	OptimizerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "optimizer_duration_seconds", Help: "Optimizer wall time in seconds.", Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30}},
		[]string{"algorithm"},
	)
	// OptimizerPasses counts improvement passes across all restarts
	OptimizerPasses = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "optimizer_passes_total", Help: "Local-search improvement passes."},
	)
	// OptimizerGain tracks final cost as a fraction of the construction cost
	OptimizerGain = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "optimizer_cost_ratio", Help: "Final tour cost divided by nearest-neighbour cost.", Buckets: []float64{0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 0.99, 1}},
	)
	// RunsInFlight is the number of optimizations currently executing
	RunsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "optimizer_runs_in_flight", Help: "Optimizations currently executing."},
	)
	// CacheLookups counts result cache lookups by result
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "result_cache_lookups_total", Help: "Result cache lookups by result."},
		[]string{"result"},
	)

	// WebhookDeliveries counts export webhook outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers all collectors on Registry. Safe to call more
// than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(OptimizerRuns)
		Registry.MustRegister(OptimizerDuration)
		Registry.MustRegister(OptimizerPasses)
		Registry.MustRegister(OptimizerGain)
		Registry.MustRegister(RunsInFlight)
		Registry.MustRegister(CacheLookups)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
