package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains the Prometheus collectors of the rooms service
type Metrics struct {
	registry *prometheus.Registry

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// AI gateway metrics
	AIRequests        *prometheus.CounterVec
	AIRequestDuration *prometheus.HistogramVec

	// Domain metrics
	QuestionsCreated   *prometheus.CounterVec
	AudioChunksCreated prometheus.Counter
	SimilarChunksFound prometheus.Histogram
	JobsProcessed      *prometheus.CounterVec
}

// New creates the collectors and registers them on a dedicated registry
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rooms_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rooms_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rooms_ai_requests_total",
			Help: "Total number of AI service calls",
		}, []string{"operation", "outcome"}),
		AIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rooms_ai_request_duration_seconds",
			Help:    "AI service call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
		QuestionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rooms_questions_created_total",
			Help: "Total number of questions created",
		}, []string{"answered"}),
		AudioChunksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rooms_audio_chunks_created_total",
			Help: "Total number of audio chunks created",
		}),
		SimilarChunksFound: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rooms_similar_chunks_found",
			Help:    "Number of chunks returned by similarity search",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		}),
		JobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rooms_jobs_processed_total",
			Help: "Total number of async upload jobs processed",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPRequestDuration,
		m.AIRequests,
		m.AIRequestDuration,
		m.QuestionsCreated,
		m.AudioChunksCreated,
		m.SimilarChunksFound,
		m.JobsProcessed,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry, mainly for tests
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// RecordHTTPRequest records one served HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordAIRequest records one AI gateway call
func (m *Metrics) RecordAIRequest(operation string, err error, seconds float64) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.AIRequests.WithLabelValues(operation, outcome).Inc()
	m.AIRequestDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) RecordQuestion(answered bool) {
	if m == nil {
		return
	}
	label := "false"
	if answered {
		label = "true"
	}
	m.QuestionsCreated.WithLabelValues(label).Inc()
}

func (m *Metrics) RecordAudioChunk() {
	if m == nil {
		return
	}
	m.AudioChunksCreated.Inc()
}

func (m *Metrics) RecordSimilarChunks(n int) {
	if m == nil {
		return
	}
	m.SimilarChunksFound.Observe(float64(n))
}

func (m *Metrics) RecordJob(outcome string) {
	if m == nil {
		return
	}
	m.JobsProcessed.WithLabelValues(outcome).Inc()
}
