package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Enabled turns metric recording on. A disabled collector is a no-op.
	Enabled bool

	// Namespace is the metric name prefix. Default: "medscrub".
	Namespace string

	// BatchDurationBuckets are histogram buckets for whole-batch duration
	// in seconds.
	BatchDurationBuckets []float64
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Namespace: "medscrub",
		// Batches range from sub-second (a handful of records) to minutes.
		BatchDurationBuckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
	}
}

// Collector records batch processing metrics against a private registry.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	recordsProcessed   prometheus.Counter
	recordErrors       *prometheus.CounterVec
	recordsQuarantined prometheus.Counter
	batches            *prometheus.CounterVec
	batchDuration      prometheus.Histogram
}

// NewCollector creates a collector. If registry is nil a private registry is
// created.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "medscrub"
	}
	if len(cfg.BatchDurationBuckets) == 0 {
		cfg.BatchDurationBuckets = DefaultConfig().BatchDurationBuckets
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
		recordsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "batch",
			Name:      "records_processed_total",
			Help:      "Records successfully anonymized, committed and validated.",
		}),
		recordErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "batch",
			Name:      "record_errors_total",
			Help:      "Per-record failures by reason.",
		}, []string{"reason"}),
		recordsQuarantined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "batch",
			Name:      "records_quarantined_total",
			Help:      "Source records copied to quarantine.",
		}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "batch",
			Name:      "batches_total",
			Help:      "Completed batches by outcome.",
		}, []string{"outcome"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of a whole batch.",
			Buckets:   cfg.BatchDurationBuckets,
		}),
	}

	registry.MustRegister(
		c.recordsProcessed,
		c.recordErrors,
		c.recordsQuarantined,
		c.batches,
		c.batchDuration,
	)
	return c
}

// RecordProcessed counts one successfully processed record.
func (c *Collector) RecordProcessed() {
	if !c.config.Enabled {
		return
	}
	c.recordsProcessed.Inc()
}

// RecordError counts one per-record failure with its reason label
// (e.g. "read", "commit", "validate").
func (c *Collector) RecordError(reason string) {
	if !c.config.Enabled {
		return
	}
	c.recordErrors.WithLabelValues(reason).Inc()
}

// RecordQuarantined counts one quarantine copy.
func (c *Collector) RecordQuarantined() {
	if !c.config.Enabled {
		return
	}
	c.recordsQuarantined.Inc()
}

// RecordBatch counts a completed batch ("success", "partial_failure",
// "validation_failed") and observes its duration.
func (c *Collector) RecordBatch(outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.batches.WithLabelValues(outcome).Inc()
	c.batchDuration.Observe(duration.Seconds())
}

// Registry exposes the private registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler serving the collector's registry in the
// Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
