package headersync

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "headersync"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of headers sitting in each pipeline stage.
	QueuedHeaders metrics.Gauge

	// Highest block number across the in-flight stages.
	BestQueuedNumber metrics.Gauge

	// Minimum block number still retained by the queue.
	PruneBorder metrics.Gauge

	// Number of source-chain headers accepted into the queue.
	AcceptedHeaders metrics.Counter

	// Number of duplicate or ancient headers dropped on arrival.
	IgnoredHeaders metrics.Counter

	// Number of headers confirmed synced by target chain observations.
	SyncedHeaders metrics.Counter

	// Number of headers discarded by pruning.
	PrunedHeaders metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		QueuedHeaders: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "queued_headers",
			Help:      "Number of headers sitting in each pipeline stage.",
		}, append(labels, "status")).With(labelsAndValues...),

		BestQueuedNumber: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "best_queued_number",
			Help:      "Highest block number across the in-flight stages.",
		}, labels).With(labelsAndValues...),

		PruneBorder: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "prune_border",
			Help:      "Minimum block number still retained by the queue.",
		}, labels).With(labelsAndValues...),

		AcceptedHeaders: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "accepted_headers",
			Help:      "Number of source-chain headers accepted into the queue.",
		}, labels).With(labelsAndValues...),

		IgnoredHeaders: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "ignored_headers",
			Help:      "Number of duplicate or ancient headers dropped on arrival.",
		}, labels).With(labelsAndValues...),

		SyncedHeaders: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "synced_headers",
			Help:      "Number of headers confirmed synced by target chain observations.",
		}, labels).With(labelsAndValues...),

		PrunedHeaders: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "pruned_headers",
			Help:      "Number of headers discarded by pruning.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		QueuedHeaders:    discard.NewGauge(),
		BestQueuedNumber: discard.NewGauge(),
		PruneBorder:      discard.NewGauge(),
		AcceptedHeaders:  discard.NewCounter(),
		IgnoredHeaders:   discard.NewCounter(),
		SyncedHeaders:    discard.NewCounter(),
		PrunedHeaders:    discard.NewCounter(),
	}
}
