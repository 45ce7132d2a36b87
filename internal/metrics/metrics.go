package metrics

import (
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// ICA Metrics
	ComputationsTotal    *prometheus.CounterVec
	ComputationFailures  *prometheus.CounterVec
	CompositeCoefficient *prometheus.HistogramVec
	ComputeDuration      prometheus.Histogram

	// Ingestion Metrics
	MQTTMessagesTotal *prometheus.CounterVec
	StoreErrorsTotal  *prometheus.CounterVec

	// API Metrics
	APIRequestsTotal *prometheus.CounterVec

	// System Metrics
	ActiveConnections prometheus.Gauge
	ArchivedReports   prometheus.Counter
}

// NewCollector creates a new metrics collector registered on reg.
// Pass prometheus.DefaultRegisterer to expose the metrics on /metrics.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		ComputationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ica_computations_total",
				Help:      "Total number of successful ICA computations by record kind and quality class",
			},
			[]string{"kind", "quality_class"},
		),

		ComputationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ica_computation_failures_total",
				Help:      "Total number of rejected ICA computations by record kind and error kind",
			},
			[]string{"kind", "error_kind"},
		),

		CompositeCoefficient: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ica_composite_coefficient",
				Help:      "Distribution of composite ICA coefficients",
				Buckets:   []float64{0.25, 0.5, 0.7, 0.9, 1.0},
			},
			[]string{"kind"},
		),

		ComputeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ica_compute_duration_seconds",
				Help:      "Duration of ICA computations in seconds",
				Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
			},
		),

		MQTTMessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mqtt_messages_total",
				Help:      "Total number of MQTT sample messages by kind and outcome",
			},
			[]string{"kind", "status"},
		),

		StoreErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Total number of failed record writes by record kind",
			},
			[]string{"kind"},
		),

		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by route, method, and status",
			},
			[]string{"route", "method", "status"},
		),

		ActiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "websocket_active_connections",
				Help:      "Number of connected websocket clients",
			},
		),

		ArchivedReports: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archived_reports_total",
				Help:      "Total number of ICA reports uploaded to the archive",
			},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordComputation counts a successful computation and observes its composite
func (c *Collector) RecordComputation(kind, qualityClass string, composite *apd.Decimal) {
	c.ComputationsTotal.WithLabelValues(kind, qualityClass).Inc()
	if composite == nil {
		return
	}
	if f, err := composite.Float64(); err == nil {
		c.CompositeCoefficient.WithLabelValues(kind).Observe(f)
	}
}

// RecordFailure counts a rejected computation
func (c *Collector) RecordFailure(kind, errorKind string) {
	c.ComputationFailures.WithLabelValues(kind, errorKind).Inc()
}

// RecordMQTTMessage counts an MQTT sample message by outcome
func (c *Collector) RecordMQTTMessage(kind, status string) {
	c.MQTTMessagesTotal.WithLabelValues(kind, status).Inc()
}

// RecordStoreError counts a failed write
func (c *Collector) RecordStoreError(kind string) {
	c.StoreErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(route, method, status string) {
	c.APIRequestsTotal.WithLabelValues(route, method, status).Inc()
}
