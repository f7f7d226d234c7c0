package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dkovalev/interview-copilot/internal/core/domain"
)

type HTTPServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	decisionsTotal       *prometheus.CounterVec
	decisionConfidence   *prometheus.HistogramVec
	candidateEvaluations *prometheus.CounterVec
	askDuration          *prometheus.HistogramVec
	retrievalRequests    *prometheus.CounterVec
	retrievedCandidates  *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "icop",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "icop",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "icop",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	decisionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "icop",
			Subsystem: "judge",
			Name:      "decisions_total",
			Help:      "Total answer decisions by source (PREPARED or GENERATED).",
		},
		[]string{"service", "source"},
	)
	decisionConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "icop",
			Subsystem: "judge",
			Name:      "decision_confidence",
			Help:      "Distribution of decision confidence scores (0-10).",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
		[]string{"service", "source"},
	)
	candidateEvaluations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "icop",
			Subsystem: "judge",
			Name:      "candidate_evaluations_total",
			Help:      "Total candidate evaluations by outcome (scored or parse_failed).",
		},
		[]string{"service", "outcome"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "icop",
			Subsystem: "judge",
			Name:      "ask_duration_seconds",
			Help:      "End-to-end ask pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	retrievalRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "icop",
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Total retrieval requests by strategy.",
		},
		[]string{"service", "strategy"},
	)
	retrievedCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "icop",
			Subsystem: "retrieval",
			Name:      "candidates",
			Help:      "Distribution of retrieved candidates per request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "strategy"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		decisionsTotal,
		decisionConfidence,
		candidateEvaluations,
		askDuration,
		retrievalRequests,
		retrievedCandidates,
	)

	return &HTTPServerMetrics{
		service:              service,
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		decisionsTotal:       decisionsTotal,
		decisionConfidence:   decisionConfidence,
		candidateEvaluations: candidateEvaluations,
		askDuration:          askDuration,
		retrievalRequests:    retrievalRequests,
		retrievedCandidates:  retrievedCandidates,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/stories/"):
		return "/v1/stories/{story_id}"
	case strings.HasPrefix(path, "/v1/uploads/"):
		return "/v1/uploads/{upload_id}"
	default:
		return path
	}
}

// DecisionMade and CandidateEvaluated implement the judgment telemetry hook.

func (m *HTTPServerMetrics) DecisionMade(source domain.AnswerSource, confidence int) {
	m.decisionsTotal.WithLabelValues(m.service, string(source)).Inc()
	m.decisionConfidence.WithLabelValues(m.service, string(source)).Observe(float64(confidence))
}

func (m *HTTPServerMetrics) CandidateEvaluated(parseFailed bool) {
	outcome := "scored"
	if parseFailed {
		outcome = "parse_failed"
	}
	m.candidateEvaluations.WithLabelValues(m.service, outcome).Inc()
}

func (m *HTTPServerMetrics) ObserveAskDuration(duration time.Duration) {
	m.askDuration.WithLabelValues(m.service).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordRetrieval(strategy string, candidateCount int) {
	if strategy == "" {
		strategy = "unknown"
	}
	m.retrievalRequests.WithLabelValues(m.service, strategy).Inc()
	m.retrievedCandidates.WithLabelValues(m.service, strategy).Observe(float64(candidateCount))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
