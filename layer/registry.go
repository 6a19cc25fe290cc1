package layer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/c360studio/hexguard/classgraph"
)

var (
	// ErrConfigAbsent is returned when no architecture configuration exists.
	ErrConfigAbsent = errors.New("architecture configuration is not present")
	// ErrMissingPackages is returned when a layer has no package patterns.
	ErrMissingPackages = errors.New("layer packages are not configured")
	// ErrInvalidPattern is returned for a malformed package pattern.
	ErrInvalidPattern = errors.New("invalid package pattern")
	// ErrUnknownPolicy is returned for an unrecognised defaults policy.
	ErrUnknownPolicy = errors.New("unknown defaults policy")
)

// Registry is the validated set of layers. It is immutable once built.
type Registry struct {
	layers []*Layer
	byName map[Name]*Layer
	vocab  Vocabulary
	policy DefaultsPolicy
}

// NewRegistry validates cfg and computes every layer's effective allowlist.
// All configuration problems are reported together.
func NewRegistry(cfg *Config, vocab Vocabulary, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		return nil, ErrConfigAbsent
	}

	policy := cfg.DefaultsPolicy
	if policy == "" {
		policy = PolicyAlways
	}
	if policy != PolicyAlways && policy != PolicyLegacy {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
	defaults := cfg.DefaultLibraries
	if defaults == nil {
		defaults = DefaultLibraries
	}

	var errs []error
	for _, p := range defaults {
		if classgraph.ValidatePattern(p) != nil {
			errs = append(errs, fmt.Errorf("default libraries: %w: %q", ErrInvalidPattern, p))
		}
	}

	r := &Registry{
		byName: make(map[Name]*Layer, len(All)),
		vocab:  vocab,
		policy: policy,
	}
	for _, name := range All {
		entry := cfg.For(name)
		if entry == nil || len(entry.Packages) == 0 {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingPackages, name))
			continue
		}
		for _, p := range append(append([]string{}, entry.Packages...), entry.AllowedLibraries...) {
			if classgraph.ValidatePattern(p) != nil {
				errs = append(errs, fmt.Errorf("%s: %w: %q", name, ErrInvalidPattern, p))
			}
		}

		l := &Layer{
			Name:             name,
			Packages:         append([]string(nil), entry.Packages...),
			AllowedLibraries: append([]string(nil), entry.AllowedLibraries...),
			Constraints:      DefaultConstraints(name),
		}
		l.Allowed = mergeAllowlist(policy, l.AllowedLibraries, defaults, l.Packages)
		if policy == PolicyLegacy && len(l.AllowedLibraries) == 0 && l.Constraints.CheckDependencies {
			logger.Warn("Legacy defaults policy: default libraries not applied",
				"layer", name, "defaults", defaults)
		}

		r.layers = append(r.layers, l)
		r.byName[name] = l
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

// mergeAllowlist builds custom ∪ defaults ∪ own, honouring the policy. Order
// is preserved and duplicates dropped.
func mergeAllowlist(policy DefaultsPolicy, custom, defaults, own []string) []string {
	parts := [][]string{custom, defaults, own}
	if policy == PolicyLegacy && len(custom) == 0 {
		parts = [][]string{own}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, part := range parts {
		for _, p := range part {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// Layers returns the layers in evaluation order.
func (r *Registry) Layers() []*Layer {
	return r.layers
}

// Layer returns the named layer.
func (r *Registry) Layer(name Name) (*Layer, bool) {
	l, ok := r.byName[name]
	return l, ok
}

// PackagesOf returns the union of the package patterns of the named layers.
func (r *Registry) PackagesOf(names ...Name) []string {
	var out []string
	for _, n := range names {
		if l, ok := r.byName[n]; ok {
			out = append(out, l.Packages...)
		}
	}
	return out
}

// Vocabulary returns the tag and type vocabulary.
func (r *Registry) Vocabulary() Vocabulary {
	return r.vocab
}

// Policy returns the effective defaults policy.
func (r *Registry) Policy() DefaultsPolicy {
	return r.policy
}
