// Package classgraph provides the immutable structural model that architecture
// rules are evaluated against: one ClassDescriptor per class or interface, plus
// the read-only queries rules need (package membership, capability tags,
// assignability, generic arguments, constructors and factory methods).
package classgraph

import "strings"

// Shape is the declared kind of a type.
type Shape string

const (
	ShapeClass     Shape = "class"
	ShapeInterface Shape = "interface"
	ShapeEnum      Shape = "enum"
	ShapeRecord    Shape = "record"
)

// Visibility is the access modifier of a type or member.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
	VisibilityPackage   Visibility = "package"
	VisibilityPrivate   Visibility = "private"
)

// TypeRef is a reference to a type, possibly parameterized.
// Name is the erased, qualified type name.
type TypeRef struct {
	Name string    `json:"name" yaml:"name"`
	Args []TypeRef `json:"args,omitempty" yaml:"args,omitempty"`
}

// Erasure returns the raw type name without generic arguments.
func (t TypeRef) Erasure() string {
	return t.Name
}

// String renders the reference in source form, e.g. "Validation<Seq<String>, Foo>".
func (t TypeRef) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return t.Name + "<" + strings.Join(args, ", ") + ">"
}

func (t TypeRef) clone() TypeRef {
	out := TypeRef{Name: t.Name}
	if len(t.Args) > 0 {
		out.Args = make([]TypeRef, len(t.Args))
		for i, a := range t.Args {
			out.Args[i] = a.clone()
		}
	}
	return out
}

// TypedCapability is an implemented interface together with its generic arguments.
type TypedCapability struct {
	Name string    `json:"name" yaml:"name"`
	Args []TypeRef `json:"args,omitempty" yaml:"args,omitempty"`
}

// SimpleName returns the unqualified interface name.
func (c TypedCapability) SimpleName() string {
	return SimpleNameOf(c.Name)
}

// Constructor is a declared (or implicit default) constructor.
type Constructor struct {
	Params     int        `json:"params" yaml:"params"`
	Visibility Visibility `json:"visibility" yaml:"visibility"`
}

// Method is a declared method.
type Method struct {
	Name       string     `json:"name" yaml:"name"`
	Visibility Visibility `json:"visibility" yaml:"visibility"`
	Static     bool       `json:"static,omitempty" yaml:"static,omitempty"`
	Return     TypeRef    `json:"return" yaml:"return"`
	Params     []TypeRef  `json:"params,omitempty" yaml:"params,omitempty"`
}

// Reference is an outgoing type reference used for dependency checks.
// Package may be left empty, in which case it is derived from Type.
type Reference struct {
	Type    string `json:"type" yaml:"type"`
	Package string `json:"package,omitempty" yaml:"package,omitempty"`
}

// TargetPackage returns the package of the referenced type.
func (r Reference) TargetPackage() string {
	if r.Package != "" {
		return r.Package
	}
	return PackageOf(r.Type)
}

// ClassDescriptor describes one class or interface of the analysed codebase.
type ClassDescriptor struct {
	Name         string            `json:"name" yaml:"name"`
	SimpleName   string            `json:"simple_name,omitempty" yaml:"simple_name,omitempty"`
	Package      string            `json:"package,omitempty" yaml:"package,omitempty"`
	Shape        Shape             `json:"shape,omitempty" yaml:"shape,omitempty"`
	Visibility   Visibility        `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Static       bool              `json:"static,omitempty" yaml:"static,omitempty"`
	Tags         []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Interfaces   []TypedCapability `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Supertypes   []string          `json:"supertypes,omitempty" yaml:"supertypes,omitempty"`
	Constructors []Constructor     `json:"constructors,omitempty" yaml:"constructors,omitempty"`
	Methods      []Method          `json:"methods,omitempty" yaml:"methods,omitempty"`
	References   []Reference       `json:"references,omitempty" yaml:"references,omitempty"`
}

// clone returns a deep copy with SimpleName, Package and Shape filled in.
func (d ClassDescriptor) clone() ClassDescriptor {
	out := d
	if out.SimpleName == "" {
		out.SimpleName = SimpleNameOf(d.Name)
	}
	if out.Package == "" {
		out.Package = PackageOf(d.Name)
	}
	if out.Shape == "" {
		out.Shape = ShapeClass
	}
	out.Tags = append([]string(nil), d.Tags...)
	out.Supertypes = append([]string(nil), d.Supertypes...)
	out.Constructors = append([]Constructor(nil), d.Constructors...)
	out.References = append([]Reference(nil), d.References...)

	out.Interfaces = make([]TypedCapability, len(d.Interfaces))
	for i, c := range d.Interfaces {
		tc := TypedCapability{Name: c.Name}
		for _, a := range c.Args {
			tc.Args = append(tc.Args, a.clone())
		}
		out.Interfaces[i] = tc
	}

	out.Methods = make([]Method, len(d.Methods))
	for i, m := range d.Methods {
		cm := m
		cm.Return = m.Return.clone()
		cm.Params = nil
		for _, p := range m.Params {
			cm.Params = append(cm.Params, p.clone())
		}
		out.Methods[i] = cm
	}
	return out
}

// PackageOf returns the package part of a qualified type name.
// Nested types use '$' and keep the enclosing type's package.
func PackageOf(qualified string) string {
	name := qualified
	if i := strings.IndexByte(name, '$'); i >= 0 {
		name = name[:i]
	}
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[:i]
}

// SimpleNameOf returns the unqualified name of a type.
func SimpleNameOf(qualified string) string {
	name := qualified
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '$'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
