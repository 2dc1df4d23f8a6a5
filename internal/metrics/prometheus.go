package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the transcription service
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	PipelineRequests  prometheus.Counter
	PipelineSuccesses prometheus.Counter
	PipelineFailures  *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram
	StageDuration     *prometheus.HistogramVec
	UploadSize        prometheus.Histogram
	TranscriptLength  prometheus.Histogram
	InFlight          prometheus.Gauge
	CleanupErrors     *prometheus.CounterVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics on a dedicated registry that also carries Go and process collectors
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Pipeline metrics
		PipelineRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_pipeline_requests_total",
			Help: "Total number of audio processing requests started",
		}),
		PipelineSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriber_pipeline_successes_total",
			Help: "Total number of requests that produced a transcript and summary",
		}),
		PipelineFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transcriber_pipeline_failures_total",
			Help: "Total number of failed requests by failing stage",
		}, []string{"stage"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcriber_pipeline_duration_seconds",
			Help:    "End-to-end processing time of a request",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17 minutes
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transcriber_stage_duration_seconds",
			Help:    "Processing time per pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 15), // 50ms to ~14 minutes
		}, []string{"stage"}),
		UploadSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcriber_upload_size_bytes",
			Help:    "Size of uploaded audio files",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 14), // 16KB to ~128MB
		}),
		TranscriptLength: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcriber_transcript_length_chars",
			Help:    "Length of produced transcripts in characters",
			Buckets: prometheus.ExponentialBuckets(64, 2, 14),
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "transcriber_requests_in_flight",
			Help: "Current number of requests being processed",
		}),
		CleanupErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transcriber_cleanup_errors_total",
			Help: "Total number of failed cleanup operations by resource kind",
		}, []string{"resource"}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transcriber_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transcriber_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transcriber_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequestStarted counts a new request and marks it in flight
func (m *Metrics) RecordRequestStarted(uploadBytes int64) {
	m.PipelineRequests.Inc()
	m.InFlight.Inc()
	if uploadBytes > 0 {
		m.UploadSize.Observe(float64(uploadBytes))
	}
}

// RecordRequestSuccess records a completed request
func (m *Metrics) RecordRequestSuccess(durationSeconds float64, transcriptChars int) {
	m.InFlight.Dec()
	m.PipelineSuccesses.Inc()
	m.PipelineDuration.Observe(durationSeconds)
	m.TranscriptLength.Observe(float64(transcriptChars))
}

// RecordRequestFailure records a failed request and the stage it failed in
func (m *Metrics) RecordRequestFailure(stage string, durationSeconds float64) {
	m.InFlight.Dec()
	m.PipelineFailures.WithLabelValues(stage).Inc()
	m.PipelineDuration.Observe(durationSeconds)
}

// RecordStage records the duration of one pipeline stage
func (m *Metrics) RecordStage(stage string, durationSeconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordCleanupError counts a failed delete of a local or remote resource
func (m *Metrics) RecordCleanupError(resource string) {
	m.CleanupErrors.WithLabelValues(resource).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
