package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/hexguard/baseline"
)

const namespace = "hexguard"

// Metrics records evaluation counters. A nil *Metrics records nothing.
type Metrics struct {
	rulesEvaluated      *prometheus.CounterVec
	violations          *prometheus.CounterVec
	layerDuration       *prometheus.HistogramVec
	baselineInitialized *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rulesEvaluated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rules_evaluated_total",
				Help:      "Total number of architecture rules evaluated",
			},
			[]string{"layer"},
		),
		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "violations_total",
				Help:      "Total number of violations found, by baseline status",
			},
			[]string{"layer", "rule", "status"},
		),
		layerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "layer_evaluation_seconds",
				Help:      "Time spent evaluating the rules of one layer",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"layer"},
		),
		baselineInitialized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "baseline_initialized_total",
				Help:      "Total number of rule baselines written on first evaluation",
			},
			[]string{"layer"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.rulesEvaluated, m.violations, m.layerDuration, m.baselineInitialized)
	}
	return m
}

func (m *Metrics) observeRule(layerName, ruleID string, out baseline.Outcome) {
	if m == nil {
		return
	}
	m.rulesEvaluated.WithLabelValues(layerName).Inc()
	m.violations.WithLabelValues(layerName, ruleID, "new").Add(float64(len(out.New)))
	m.violations.WithLabelValues(layerName, ruleID, "known").Add(float64(len(out.Known)))
	if out.State == baseline.StateInitialized {
		m.baselineInitialized.WithLabelValues(layerName).Inc()
	}
}

func (m *Metrics) observeLayer(layerName string, d time.Duration) {
	if m == nil {
		return
	}
	m.layerDuration.WithLabelValues(layerName).Observe(d.Seconds())
}
