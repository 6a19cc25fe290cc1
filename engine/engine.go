// Package engine evaluates the rules of every configured layer against a
// class model and filters the violations through the baseline.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/hexguard/baseline"
	"github.com/c360studio/hexguard/classgraph"
	"github.com/c360studio/hexguard/layer"
	"github.com/c360studio/hexguard/rule"
)

// Engine runs the layer rule sets.
type Engine struct {
	registry *layer.Registry
	baseline *baseline.Baseline
	logger   *slog.Logger
	metrics  *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine over a validated registry and a baseline.
func New(reg *layer.Registry, b *baseline.Baseline, opts ...Option) *Engine {
	e := &Engine{registry: reg, baseline: b, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns every rule in evaluation order.
func (e *Engine) Rules() []rule.Rule {
	return BuildRules(e.registry)
}

// Run evaluates all rules and compares their violations with the baseline.
// Rules without a baseline record get one and pass.
func (e *Engine) Run(ctx context.Context, m *classgraph.Model) (*Report, error) {
	return e.run(ctx, m, false)
}

// Freeze evaluates all rules and rewrites every baseline record with the
// current violations.
func (e *Engine) Freeze(ctx context.Context, m *classgraph.Model) (*Report, error) {
	return e.run(ctx, m, true)
}

func (e *Engine) run(ctx context.Context, m *classgraph.Model, freeze bool) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Frozen:    freeze,
	}
	logger := e.logger.With("run_id", report.RunID)
	logger.Debug("Evaluating architecture", "classes", m.Len(), "freeze", freeze)

	layers := e.registry.Layers()
	perLayer := make([][]RuleResult, len(layers))

	// Each layer owns its slot in perLayer and its own baseline records.
	g, gctx := errgroup.WithContext(ctx)
	for i, l := range layers {
		g.Go(func() error {
			results, err := e.evaluateLayer(gctx, logger, m, l, freeze)
			if err != nil {
				return fmt.Errorf("layer %s: %w", l.Name, err)
			}
			perLayer[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, results := range perLayer {
		report.Results = append(report.Results, results...)
	}
	report.Duration = time.Since(report.StartedAt)

	logger.Info("Architecture evaluated",
		"rules", len(report.Results),
		"new", report.NewCount(),
		"known", report.KnownCount(),
		"duration", report.Duration)
	return report, nil
}

func (e *Engine) evaluateLayer(ctx context.Context, logger *slog.Logger, m *classgraph.Model, l *layer.Layer, freeze bool) ([]RuleResult, error) {
	start := time.Now()
	defer func() { e.metrics.observeLayer(string(l.Name), time.Since(start)) }()

	var results []RuleResult
	for _, r := range layerRules(e.registry, l) {
		current := r.Evaluate(m)

		var out baseline.Outcome
		if freeze {
			if err := e.baseline.Freeze(ctx, r.ID, current); err != nil {
				return nil, err
			}
			out = baseline.Outcome{RuleID: r.ID, State: baseline.StateFrozen, Known: current}
		} else {
			var err error
			if out, err = e.baseline.Check(ctx, r.ID, current); err != nil {
				return nil, err
			}
		}
		e.metrics.observeRule(string(l.Name), r.ID, out)

		if len(out.New) > 0 {
			logger.Warn("Rule violated", "layer", l.Name, "rule", r.ID, "new", len(out.New), "known", len(out.Known))
		} else {
			logger.Debug("Rule passed", "layer", l.Name, "rule", r.ID, "known", len(out.Known), "state", out.State)
		}

		results = append(results, RuleResult{
			RuleID:      r.ID,
			Layer:       string(l.Name),
			Description: r.Description(),
			State:       out.State,
			Violations:  current,
			New:         out.New,
			Known:       out.Known,
		})
	}
	return results, nil
}
