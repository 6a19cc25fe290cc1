package java

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/hexguard/classgraph"
)

// DefaultExcludes keeps test sources out of the model.
var DefaultExcludes = []string{"**/src/test/**"}

// DefaultIgnoredAnnotations are annotations that never become capability
// tags: Lombok and the source-retention annotations of java.lang are gone
// from the compiled class.
var DefaultIgnoredAnnotations = []string{
	"lombok..",
	"java.lang.Override",
	"java.lang.SuppressWarnings",
	"java.lang.SafeVarargs",
}

// Extractor turns Java source trees into class descriptors.
type Extractor struct {
	logger   *slog.Logger
	workers  int
	excludes []string
	ignored  []string
	matcher  *classgraph.Matcher
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithWorkers sets the number of files parsed in parallel.
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithExcludes replaces the doublestar patterns, relative to each root, of
// files left out of the model.
func WithExcludes(patterns ...string) Option {
	return func(e *Extractor) { e.excludes = append([]string(nil), patterns...) }
}

// WithIgnoredAnnotations replaces the patterns of annotations that are not
// turned into capability tags. Patterns use the package pattern syntax over
// the annotation's qualified name.
func WithIgnoredAnnotations(patterns ...string) Option {
	return func(e *Extractor) { e.ignored = append([]string(nil), patterns...) }
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...Option) (*Extractor, error) {
	e := &Extractor{
		logger:   slog.Default(),
		workers:  runtime.GOMAXPROCS(0),
		excludes: DefaultExcludes,
		ignored:  DefaultIgnoredAnnotations,
		matcher:  classgraph.NewMatcher(1024),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, p := range e.excludes {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	for _, p := range e.ignored {
		if err := classgraph.ValidatePattern(p); err != nil {
			return nil, fmt.Errorf("ignored annotation: %w", err)
		}
	}
	return e, nil
}

// ExtractDir parses every .java file below roots and returns one descriptor
// per declared type, sorted by name. Files that fail to parse are logged and
// skipped.
func (e *Extractor) ExtractDir(ctx context.Context, roots ...string) ([]classgraph.ClassDescriptor, error) {
	var paths []string
	for _, root := range roots {
		found, err := e.javaFiles(ctx, root)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	files, err := e.parseAll(ctx, paths)
	if err != nil {
		return nil, err
	}
	return e.Resolve(files), nil
}

func (e *Extractor) javaFiles(ctx context.Context, root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".java") || e.excluded(filepath.ToSlash(rel)) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return out, nil
}

func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "target", "build", "bin", "out", "classes",
		"node_modules", "vendor", "test-output":
		return true
	}
	return false
}

func (e *Extractor) excluded(rel string) bool {
	for _, p := range e.excludes {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// parseAll parses paths with a bounded pool; each worker owns one
// tree-sitter parser.
func (e *Extractor) parseAll(ctx context.Context, paths []string) ([]*File, error) {
	results := make([]*File, len(paths))
	jobs := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range paths {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for range min(e.workers, max(len(paths), 1)) {
		g.Go(func() error {
			p := NewParser()
			defer p.Close()
			for i := range jobs {
				f, err := p.ParseFile(gctx, paths[i])
				if err != nil {
					e.logger.Warn("Skipping unparseable source", "path", paths[i], "error", err)
					continue
				}
				results[i] = f
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := results[:0]
	for _, f := range results {
		if f != nil {
			out = append(out, f)
		}
	}
	e.logger.Debug("Parsed Java sources", "files", len(out), "skipped", len(paths)-len(out))
	return out, nil
}

func (e *Extractor) ignoredAnnotation(qualified string) bool {
	if e.matcher == nil {
		return false
	}
	return e.matcher.MatchAny(qualified, e.ignored)
}

// Resolve builds descriptors from parsed files. When two files declare the
// same type the first one wins.
func (e *Extractor) Resolve(files []*File) []classgraph.ClassDescriptor {
	idx := newIndex(files)
	seen := make(map[string]string)
	var out []classgraph.ClassDescriptor
	for _, f := range files {
		for _, t := range f.types {
			r := newResolver(idx, f, t)
			r.ignored = e.ignoredAnnotation
			d := r.descriptor()
			if first, dup := seen[d.Name]; dup {
				e.logger.Warn("Duplicate type declaration ignored", "type", d.Name, "path", f.Path, "first", first)
				continue
			}
			seen[d.Name] = f.Path
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
