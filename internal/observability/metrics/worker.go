package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	indexedStories  *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "icop",
			Subsystem: "worker",
			Name:      "process_total",
			Help:      "Total processed queue events by kind and status.",
		},
		[]string{"service", "kind", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "icop",
			Subsystem: "worker",
			Name:      "process_duration_seconds",
			Help:      "Queue event processing duration in seconds by kind and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "kind", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "icop",
			Subsystem: "worker",
			Name:      "process_in_flight",
			Help:      "Number of in-flight processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	indexedStories := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "icop",
			Subsystem: "worker",
			Name:      "indexed_stories_total",
			Help:      "Total stories written to the vector index.",
		},
		[]string{"service"},
	)
	registry.MustRegister(processTotal, processDuration, processInFlight, indexedStories)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		indexedStories:  indexedStories,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartTask() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishTask(service, kind string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, kind, status).Inc()
	m.processDuration.WithLabelValues(service, kind, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) AddIndexedStories(service string, count int) {
	if count <= 0 {
		return
	}
	m.indexedStories.WithLabelValues(service).Add(float64(count))
}
