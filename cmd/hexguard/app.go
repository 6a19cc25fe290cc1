package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/hexguard/baseline"
	"github.com/c360studio/hexguard/classgraph"
	"github.com/c360studio/hexguard/config"
	"github.com/c360studio/hexguard/engine"
	"github.com/c360studio/hexguard/extract"
	"github.com/c360studio/hexguard/extract/java"
	"github.com/c360studio/hexguard/layer"
	"github.com/c360studio/hexguard/report"
)

// sqliteFile is the database name inside the baseline directory.
const sqliteFile = "baseline.db"

// App wires the configured components for one invocation.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	engine  *engine.Engine
	metrics *prometheus.Registry
	matcher *classgraph.Matcher

	closers []func()
}

// AppOption configures an App.
type AppOption func(*App)

// WithMatcher shares a package pattern matcher, and its cache, across apps.
func WithMatcher(m *classgraph.Matcher) AppOption {
	return func(a *App) { a.matcher = m }
}

// NewApp validates the architecture configuration and opens the baseline
// store. Configuration errors are returned before anything is evaluated.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...AppOption) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reg, err := layer.NewRegistry(cfg.Architecture, cfg.Vocabulary, logger)
	if err != nil {
		return nil, fmt.Errorf("architecture: %w", err)
	}
	logger.Debug("Architecture loaded", "layers", len(reg.Layers()), "defaults_policy", reg.Policy())

	a := &App{cfg: cfg, logger: logger, metrics: prometheus.NewRegistry()}
	for _, opt := range opts {
		opt(a)
	}
	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.engine = engine.New(reg, baseline.New(store),
		engine.WithLogger(logger),
		engine.WithMetrics(engine.NewMetrics(a.metrics)))
	return a, nil
}

func (a *App) openStore(ctx context.Context) (baseline.Store, error) {
	b := a.cfg.Baseline
	switch b.Backend {
	case config.BackendFile:
		return baseline.NewFileStore(a.cfg.Resolve(b.Path)), nil

	case config.BackendSQLite:
		store, err := baseline.NewSQLiteStore(ctx, filepath.Join(a.cfg.Resolve(b.Path), sqliteFile))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil

	case config.BackendKV:
		nc, err := nats.Connect(b.NATSURL, nats.Name("hexguard-baseline"))
		if err != nil {
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		a.closers = append(a.closers, nc.Close)
		js, err := jetstream.New(nc)
		if err != nil {
			return nil, fmt.Errorf("get JetStream context: %w", err)
		}
		return baseline.NewKVStore(ctx, js, b.Bucket)
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, b.Backend)
}

// Close releases the store and any connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Engine returns the configured engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// LoadModel builds the class model from the snapshot if one is configured,
// from the source roots otherwise.
func (a *App) LoadModel(ctx context.Context) (*classgraph.Model, error) {
	descs, err := a.descriptors(ctx)
	if err != nil {
		return nil, err
	}
	m, err := classgraph.New(descs, classgraph.WithMatcher(a.matcher))
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	return m, nil
}

func (a *App) descriptors(ctx context.Context) ([]classgraph.ClassDescriptor, error) {
	if snap := a.cfg.Model.Snapshot; snap != "" {
		descs, err := extract.LoadSnapshot(a.cfg.Resolve(snap))
		if err != nil {
			return nil, err
		}
		a.logger.Debug("Loaded model snapshot", "path", snap, "classes", len(descs))
		return descs, nil
	}
	return extractSources(ctx, a.cfg, a.logger)
}

func extractSources(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]classgraph.ClassDescriptor, error) {
	ex, err := java.NewExtractor(
		java.WithLogger(logger),
		java.WithExcludes(cfg.Model.Excludes...),
		java.WithIgnoredAnnotations(cfg.Model.IgnoredAnnotations...))
	if err != nil {
		return nil, err
	}
	roots := make([]string, len(cfg.Model.Sources))
	for i, src := range cfg.Model.Sources {
		roots[i] = cfg.Resolve(src)
	}
	descs, err := ex.ExtractDir(ctx, roots...)
	if err != nil {
		return nil, fmt.Errorf("extract sources: %w", err)
	}
	logger.Debug("Extracted model from sources", "roots", roots, "classes", len(descs))
	return descs, nil
}

// Check evaluates the model, renders the report to w, publishes it and
// writes metrics.
func (a *App) Check(ctx context.Context, w io.Writer, freeze, verbose bool) (*engine.Report, error) {
	m, err := a.LoadModel(ctx)
	if err != nil {
		return nil, err
	}

	var rep *engine.Report
	if freeze {
		rep, err = a.engine.Freeze(ctx, m)
	} else {
		rep, err = a.engine.Run(ctx, m)
	}
	if err != nil {
		return nil, err
	}

	renderer, err := report.NewRenderer(a.cfg.Report.Format, a.cfg.ColorEnabled(), verbose)
	if err != nil {
		return nil, err
	}
	if err := renderer.Render(w, rep); err != nil {
		return nil, err
	}

	if err := a.publish(ctx, rep); err != nil {
		return nil, err
	}
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := prometheus.WriteToTextfile(a.cfg.Resolve(path), a.metrics); err != nil {
			return nil, fmt.Errorf("write metrics: %w", err)
		}
	}
	return rep, nil
}

func (a *App) publish(ctx context.Context, rep *engine.Report) error {
	url := a.cfg.Report.NATSURL
	if url == "" {
		return nil
	}
	pub, err := report.ConnectNATS(url, a.cfg.Report.Subject, a.logger)
	if err != nil {
		return err
	}
	defer pub.Close()
	return pub.Publish(ctx, rep)
}
