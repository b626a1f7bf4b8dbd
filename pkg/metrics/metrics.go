// Package metrics exposes prometheus instrumentation of the reputation
// node: epoch progression, session outcomes and convergence behavior.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "veritrust_node"

	reputationSubsystem = "reputation"
)

// NodeMetrics groups the prometheus collectors of the reputation node.
//
// Must be created via NewNodeMetrics which also registers the collectors in
// the default registry.
type NodeMetrics struct {
	epoch prometheus.Gauge

	epochDuration prometheus.Histogram

	iterations prometheus.Histogram

	nonConvergentEpochs prometheus.Counter

	sessionOutcomes *prometheus.CounterVec
}

// NewNodeMetrics creates and registers the node collectors.
func NewNodeMetrics() *NodeMetrics {
	epoch := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: reputationSubsystem,
		Name:      "epoch",
		Help:      "Current reputation epoch of the node.",
	})
	prometheus.MustRegister(epoch)

	epochDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: reputationSubsystem,
		Name:      "epoch_duration_seconds",
		Help:      "Wall time of one full epoch of opinion exchange and aggregation.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	prometheus.MustRegister(epochDuration)

	iterations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: reputationSubsystem,
		Name:      "iterations",
		Help:      "Power iterations performed per epoch.",
		Buckets:   prometheus.LinearBuckets(1, 5, 10),
	})
	prometheus.MustRegister(iterations)

	nonConvergent := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: reputationSubsystem,
		Name:      "non_convergent_epochs_total",
		Help:      "Number of epochs which hit the iteration cap before convergence.",
	})
	prometheus.MustRegister(nonConvergent)

	sessionOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: reputationSubsystem,
		Name:      "session_outcomes_total",
		Help:      "Terminal session outcomes by state and failure reason.",
	}, []string{"state", "reason"})
	prometheus.MustRegister(sessionOutcomes)

	return &NodeMetrics{
		epoch:               epoch,
		epochDuration:       epochDuration,
		iterations:          iterations,
		nonConvergentEpochs: nonConvergent,
		sessionOutcomes:     sessionOutcomes,
	}
}

// SetEpoch updates the epoch gauge.
func (m *NodeMetrics) SetEpoch(epoch uint64) {
	m.epoch.Set(float64(epoch))
}

// ObserveEpoch records the outcome of one finished epoch.
func (m *NodeMetrics) ObserveEpoch(d time.Duration, iterations uint32, converged bool) {
	m.epochDuration.Observe(d.Seconds())
	m.iterations.Observe(float64(iterations))

	if !converged {
		m.nonConvergentEpochs.Inc()
	}
}

// ObserveSession records one terminal session outcome.
func (m *NodeMetrics) ObserveSession(state, reason string) {
	m.sessionOutcomes.WithLabelValues(state, reason).Inc()
}
