// Package config provides configuration loading and management for hexguard.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/hexguard/layer"
)

// Baseline backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendKV     = "kv"
)

// ErrUnknownBackend is returned for an unsupported baseline backend.
var ErrUnknownBackend = errors.New("unknown baseline backend")

// Config represents the complete hexguard configuration
type Config struct {
	// Architecture is the layer configuration. It has no default; a run
	// without it aborts with layer.ErrConfigAbsent.
	Architecture *layer.Config    `yaml:"architecture,omitempty"`
	Vocabulary   layer.Vocabulary `yaml:"vocabulary"`
	Model        ModelConfig      `yaml:"model"`
	Baseline     BaselineConfig   `yaml:"baseline"`
	Report       ReportConfig     `yaml:"report"`
	Metrics      MetricsConfig    `yaml:"metrics"`
	Repo         RepoConfig       `yaml:"repo"`
}

// ModelConfig says where the class model comes from
type ModelConfig struct {
	// Snapshot is a saved model; when set, sources are not parsed
	Snapshot string `yaml:"snapshot,omitempty"`
	// Sources are Java source roots, relative to the repository
	Sources []string `yaml:"sources,omitempty"`
	// Excludes are doublestar patterns of source files to leave out
	Excludes []string `yaml:"excludes,omitempty"`
	// IgnoredAnnotations are package patterns of annotations that are not
	// capability tags, such as Lombok's
	IgnoredAnnotations []string `yaml:"ignored_annotations,omitempty"`
}

// BaselineConfig configures the baseline store
type BaselineConfig struct {
	// Backend is one of file, sqlite or kv
	Backend string `yaml:"backend"`
	// Path is the baseline directory; the sqlite backend keeps baseline.db in it
	Path string `yaml:"path"`
	// NATSURL is the server of the kv backend
	NATSURL string `yaml:"nats_url,omitempty"`
	// Bucket is the JetStream key-value bucket of the kv backend
	Bucket string `yaml:"bucket,omitempty"`
}

// ReportConfig configures report output and publishing
type ReportConfig struct {
	// Format is text or json
	Format string `yaml:"format"`
	// Color enables ANSI colours in text output
	Color *bool `yaml:"color,omitempty"`
	// NATSURL enables publishing when set
	NATSURL string `yaml:"nats_url,omitempty"`
	// Subject is the subject prefix of published reports
	Subject string `yaml:"subject"`
}

// MetricsConfig configures metric export
type MetricsConfig struct {
	// Textfile is written in the Prometheus text format after each run
	Textfile string `yaml:"textfile,omitempty"`
}

// RepoConfig configures the repository settings
type RepoConfig struct {
	// Path is the repository root path (auto-detected from git if empty)
	Path string `yaml:"path,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	color := true
	return &Config{
		Vocabulary: layer.DefaultVocabulary(),
		Model: ModelConfig{
			Sources:  []string{"src/main/java"},
			Excludes: []string{"**/src/test/**"},
			IgnoredAnnotations: []string{
				"lombok..",
				"java.lang.Override",
				"java.lang.SuppressWarnings",
				"java.lang.SafeVarargs",
			},
		},
		Baseline: BaselineConfig{
			Backend: BackendFile,
			Path:    ".hexguard/baseline",
			Bucket:  "HEXGUARD_BASELINE",
		},
		Report: ReportConfig{
			Format:  "text",
			Color:   &color,
			Subject: "hexguard.report",
		},
	}
}

// ProjectTemplate returns the defaults with an architecture section that
// places the layers at their conventional packages below basePackage.
func ProjectTemplate(basePackage string) *Config {
	base := strings.TrimSuffix(strings.TrimSpace(basePackage), ".")
	pkg := func(sub string) []string { return []string{base + "." + sub + ".."} }
	kernel := pkg("sharedkernel")
	domain := pkg("domain")
	commands := pkg("application.commands")
	queries := pkg("application.queries")

	config := DefaultConfig()
	config.Architecture = &layer.Config{
		SharedKernel: &layer.Packages{Packages: kernel},
		Domain:       &layer.Packages{Packages: domain, AllowedLibraries: kernel},
		Command:      &layer.Packages{Packages: commands, AllowedLibraries: kernel},
		Query:        &layer.Packages{Packages: queries, AllowedLibraries: kernel},
		Handler: &layer.Packages{
			Packages:         pkg("application.handlers"),
			AllowedLibraries: slices.Concat(kernel, domain, pkg("application")),
		},
		InputPorts: &layer.Packages{
			Packages:         pkg("application.ports.in"),
			AllowedLibraries: slices.Concat(kernel, commands, queries),
		},
		OutputPorts: &layer.Packages{
			Packages:         pkg("application.ports.out"),
			AllowedLibraries: slices.Concat(kernel, domain),
		},
		Adapters: &layer.Packages{Packages: pkg("adapters")},
	}
	return config
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Baseline.Backend {
	case BackendFile, BackendSQLite:
		if c.Baseline.Path == "" {
			return fmt.Errorf("baseline.path is required")
		}
	case BackendKV:
		if c.Baseline.NATSURL == "" {
			return fmt.Errorf("baseline.nats_url is required for the kv backend")
		}
		if c.Baseline.Bucket == "" {
			return fmt.Errorf("baseline.bucket is required for the kv backend")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Baseline.Backend)
	}
	if c.Model.Snapshot == "" && len(c.Model.Sources) == 0 {
		return fmt.Errorf("model.snapshot or model.sources is required")
	}
	if c.Report.Format != "text" && c.Report.Format != "json" {
		return fmt.Errorf("report.format must be text or json")
	}
	if c.Vocabulary.FactoryMethod == "" {
		return fmt.Errorf("vocabulary.factory_method is required")
	}
	return nil
}

// ColorEnabled reports whether text output is coloured.
func (c *Config) ColorEnabled() bool {
	return c.Report.Color == nil || *c.Report.Color
}

// Resolve returns path relative to the repository root unless it is absolute.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.Repo.Path == "" {
		return path
	}
	return filepath.Join(c.Repo.Path, path)
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := decodeFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// loadOverlay loads only the values present in the file, for merging.
func loadOverlay(path string) (*Config, error) {
	config := &Config{}
	if err := decodeFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

func decodeFile(path string, into *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, into); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Architecture is replaced as a whole; layer lists are not combined.
	if other.Architecture != nil {
		c.Architecture = other.Architecture
	}
	c.Vocabulary = c.Vocabulary.Merge(other.Vocabulary)

	// Model
	if other.Model.Snapshot != "" {
		c.Model.Snapshot = other.Model.Snapshot
	}
	if len(other.Model.Sources) > 0 {
		c.Model.Sources = other.Model.Sources
	}
	if other.Model.Excludes != nil {
		c.Model.Excludes = other.Model.Excludes
	}
	if other.Model.IgnoredAnnotations != nil {
		c.Model.IgnoredAnnotations = other.Model.IgnoredAnnotations
	}

	// Baseline
	if other.Baseline.Backend != "" {
		c.Baseline.Backend = other.Baseline.Backend
	}
	if other.Baseline.Path != "" {
		c.Baseline.Path = other.Baseline.Path
	}
	if other.Baseline.NATSURL != "" {
		c.Baseline.NATSURL = other.Baseline.NATSURL
	}
	if other.Baseline.Bucket != "" {
		c.Baseline.Bucket = other.Baseline.Bucket
	}

	// Report
	if other.Report.Format != "" {
		c.Report.Format = other.Report.Format
	}
	if other.Report.Color != nil {
		c.Report.Color = other.Report.Color
	}
	if other.Report.NATSURL != "" {
		c.Report.NATSURL = other.Report.NATSURL
	}
	if other.Report.Subject != "" {
		c.Report.Subject = other.Report.Subject
	}

	if other.Metrics.Textfile != "" {
		c.Metrics.Textfile = other.Metrics.Textfile
	}
	if other.Repo.Path != "" {
		c.Repo.Path = other.Repo.Path
	}
}
