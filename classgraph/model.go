package classgraph

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateClass is returned when two descriptors share a qualified name.
var ErrDuplicateClass = errors.New("duplicate class")

// Model is an immutable snapshot of every class of the analysed codebase.
// It is built once per run and safe for concurrent readers.
type Model struct {
	classes []*Class
	byName  map[string]*Class
	supers  map[string]map[string]struct{}
	matcher *Matcher
}

// Option configures a Model.
type Option func(*Model)

// WithMatcher shares a package pattern matcher (and its cache) with the model.
func WithMatcher(m *Matcher) Option {
	return func(model *Model) {
		if m != nil {
			model.matcher = m
		}
	}
}

// New builds a Model from descriptors. Descriptors are deep-copied, so the
// caller may reuse its slice afterwards.
func New(descriptors []ClassDescriptor, opts ...Option) (*Model, error) {
	m := &Model{
		byName: make(map[string]*Class, len(descriptors)),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.matcher == nil {
		m.matcher = NewMatcher(DefaultMatchCacheSize)
	}

	for _, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("class descriptor without a name")
		}
		if _, exists := m.byName[d.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateClass, d.Name)
		}
		c := newClass(d.clone(), m)
		m.byName[d.Name] = c
		m.classes = append(m.classes, c)
	}
	sort.Slice(m.classes, func(i, j int) bool {
		return m.classes[i].desc.Name < m.classes[j].desc.Name
	})

	m.supers = make(map[string]map[string]struct{}, len(m.classes))
	for _, c := range m.classes {
		m.closure(c.desc.Name, map[string]bool{})
	}
	return m, nil
}

// closure computes (and memoises) every supertype reachable from name.
func (m *Model) closure(name string, visiting map[string]bool) map[string]struct{} {
	if s, ok := m.supers[name]; ok {
		return s
	}
	out := make(map[string]struct{})
	c, ok := m.byName[name]
	if !ok || visiting[name] {
		return out
	}
	visiting[name] = true
	for _, direct := range c.directSupertypes() {
		out[direct] = struct{}{}
		for s := range m.closure(direct, visiting) {
			out[s] = struct{}{}
		}
	}
	delete(visiting, name)
	m.supers[name] = out
	return out
}

// Classes returns every class, ordered by qualified name.
func (m *Model) Classes() []*Class {
	out := make([]*Class, len(m.classes))
	copy(out, m.classes)
	return out
}

// Class looks up a class by qualified name.
func (m *Model) Class(name string) (*Class, bool) {
	c, ok := m.byName[name]
	return c, ok
}

// Len returns the number of classes in the model.
func (m *Model) Len() int {
	return len(m.classes)
}

// IsAssignable reports whether typeName is target or a (transitive) subtype of
// it. Types outside the model are only assignable to themselves.
func (m *Model) IsAssignable(typeName, target string) bool {
	if typeName == target {
		return true
	}
	_, ok := m.supers[typeName][target]
	return ok
}
