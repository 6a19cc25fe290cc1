package classgraph

import "sort"

// FactorySpec describes the static factory method a class must expose.
type FactorySpec struct {
	// Method is the factory method name, e.g. "validateThenCreate".
	Method string
	// ResultType is the qualified name of the result kind the method returns.
	// Empty accepts any generic return type.
	ResultType string
	// Slots is the number of generic slots of the result; 0 means 2.
	Slots int
}

// Class is the read-only query facade over one ClassDescriptor.
type Class struct {
	desc  ClassDescriptor
	tags  map[string]struct{}
	model *Model
}

func newClass(d ClassDescriptor, m *Model) *Class {
	tags := make(map[string]struct{}, len(d.Tags))
	for _, t := range d.Tags {
		tags[t] = struct{}{}
	}
	return &Class{desc: d, tags: tags, model: m}
}

func (c *Class) Name() string           { return c.desc.Name }
func (c *Class) SimpleName() string     { return c.desc.SimpleName }
func (c *Class) Package() string        { return c.desc.Package }
func (c *Class) Shape() Shape           { return c.desc.Shape }
func (c *Class) Visibility() Visibility { return c.desc.Visibility }

// Descriptor returns a deep copy of the underlying descriptor.
func (c *Class) Descriptor() ClassDescriptor {
	return c.desc.clone()
}

// ResidesIn reports whether the class package matches any of patterns.
func (c *Class) ResidesIn(patterns ...string) bool {
	return c.model.matcher.MatchAny(c.desc.Package, patterns)
}

// HasCapability reports whether the class carries tag.
func (c *Class) HasCapability(tag string) bool {
	_, ok := c.tags[tag]
	return ok
}

// HasAnyCapability reports whether the class carries at least one tag.
func (c *Class) HasAnyCapability() bool {
	return len(c.tags) > 0
}

// Interfaces returns the implemented typed capabilities in declaration order.
func (c *Class) Interfaces() []TypedCapability {
	return c.Descriptor().Interfaces
}

// TaggedCapabilities returns the implemented capabilities whose declaring
// type carries tag. Declaring types missing from the model carry no tags.
func (c *Class) TaggedCapabilities(tag string) []TypedCapability {
	var out []TypedCapability
	for _, iface := range c.desc.Interfaces {
		decl, ok := c.model.byName[iface.Name]
		if ok && decl.HasCapability(tag) {
			out = append(out, iface)
		}
	}
	return out
}

// ImplementsCapabilityTagged reports whether any implemented capability's
// declaring type carries tag.
func (c *Class) ImplementsCapabilityTagged(tag string) bool {
	return len(c.TaggedCapabilities(tag)) > 0
}

// IsAssignableTo reports whether the class is target or a transitive subtype of it.
func (c *Class) IsAssignableTo(target string) bool {
	return c.model.IsAssignable(c.desc.Name, target)
}

// GenericArgumentAt returns the erased type of the position-th (1-based)
// generic argument of the named implemented capability. A missing capability
// or position yields ("", false); callers treat that as "not applicable".
func (c *Class) GenericArgumentAt(capability string, position int) (string, bool) {
	for _, iface := range c.desc.Interfaces {
		if iface.Name != capability {
			continue
		}
		if position < 1 || position > len(iface.Args) {
			return "", false
		}
		return iface.Args[position-1].Erasure(), true
	}
	return "", false
}

// HasPublicZeroArgConstructor reports whether the class can be instantiated
// through a public no-argument constructor.
func (c *Class) HasPublicZeroArgConstructor() bool {
	for _, ctor := range c.desc.Constructors {
		if ctor.Params == 0 && ctor.Visibility == VisibilityPublic {
			return true
		}
	}
	return false
}

// HasFactoryMethod reports whether the class declares a public static method
// named spec.Method returning a result with exactly spec.Slots generic slots,
// whose second slot is the class itself.
func (c *Class) HasFactoryMethod(spec FactorySpec) bool {
	slots := spec.Slots
	if slots == 0 {
		slots = 2
	}
	for _, m := range c.desc.Methods {
		if m.Name != spec.Method || m.Visibility != VisibilityPublic || !m.Static {
			continue
		}
		if spec.ResultType != "" && !c.model.IsAssignable(m.Return.Erasure(), spec.ResultType) {
			continue
		}
		if len(m.Return.Args) != slots || slots < 2 {
			continue
		}
		if m.Return.Args[1].Erasure() == c.desc.Name {
			return true
		}
	}
	return false
}

// OutgoingReferences returns the types referenced from fields, parameters,
// return types and method bodies.
func (c *Class) OutgoingReferences() []Reference {
	return append([]Reference(nil), c.desc.References...)
}

// ReferencesOutside returns the distinct outgoing references whose package
// matches none of patterns. References without a package (primitives) are
// never reported.
func (c *Class) ReferencesOutside(patterns ...string) []Reference {
	return c.filterReferences(func(pkg string) bool {
		return !c.model.matcher.MatchAny(pkg, patterns)
	})
}

// ReferencesInside returns the distinct outgoing references whose package
// matches at least one of patterns.
func (c *Class) ReferencesInside(patterns ...string) []Reference {
	return c.filterReferences(func(pkg string) bool {
		return c.model.matcher.MatchAny(pkg, patterns)
	})
}

func (c *Class) filterReferences(keep func(pkg string) bool) []Reference {
	seen := make(map[string]struct{})
	var out []Reference
	for _, r := range c.OutgoingReferences() {
		pkg := r.TargetPackage()
		if pkg == "" {
			continue
		}
		if _, dup := seen[r.Type]; dup {
			continue
		}
		seen[r.Type] = struct{}{}
		if keep(pkg) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Model returns the model the class belongs to.
func (c *Class) Model() *Model {
	return c.model
}

// directSupertypes returns the names of the declared superclass chain entries
// and implemented interfaces.
func (c *Class) directSupertypes() []string {
	out := make([]string, 0, len(c.desc.Supertypes)+len(c.desc.Interfaces))
	out = append(out, c.desc.Supertypes...)
	for _, iface := range c.desc.Interfaces {
		out = append(out, iface.Name)
	}
	return out
}
