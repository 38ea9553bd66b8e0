package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every prometheus collector the pipeline publishes. One
// instance is created per run and threaded through the components that
// need it, the same way the log_capturer daemon's internal/metrics
// package exposes package-level collectors for its dispatcher.
type Metrics struct {
	registry *prometheus.Registry

	RecordsFound    prometheus.Counter
	RecordsUploaded prometheus.Counter
	RecordsFailed   *prometheus.CounterVec
	BuildDuration   prometheus.Histogram
	UploadDuration  prometheus.Histogram
	QueueDepth      prometheus.Gauge
	InFlightBuilds  prometheus.Gauge
	InFlightTasks   prometheus.Gauge
}

// NewMetrics creates a fresh registry and registers all collectors under
// the given namespace (e.g. "sql2arc" or "inspire2arc").
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RecordsFound: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_found_total",
			Help:      "Total records pulled from the upstream source.",
		}),
		RecordsUploaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_uploaded_total",
			Help:      "Total records successfully uploaded to the ARC sink.",
		}),
		RecordsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_failed_total",
			Help:      "Total records that failed processing, by reason.",
		}, []string{"reason"}),
		BuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "arc_build_duration_seconds",
			Help:      "Time spent mapping and serializing one ARC.",
			Buckets:   prometheus.DefBuckets,
		}),
		UploadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "arc_upload_duration_seconds",
			Help:      "Time spent uploading one ARC to the sink.",
			Buckets:   prometheus.DefBuckets,
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_queue_depth",
			Help:      "Current number of datasets buffered ahead of the worker pool.",
		}),
		InFlightBuilds: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "serializer_in_flight_builds",
			Help:      "Number of ARC builds currently executing in the worker pool.",
		}),
		InFlightTasks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_in_flight_tasks",
			Help:      "Number of dataset tasks currently live (building or uploading).",
		}),
	}
}

// Handler returns an http.Handler exposing the registry in the
// Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
