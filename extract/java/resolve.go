package java

import (
	"sort"
	"strings"

	"github.com/c360studio/hexguard/classgraph"
)

var javaLang = map[string]struct{}{}

func init() {
	for _, n := range []string{
		"Object", "String", "CharSequence", "StringBuilder", "StringBuffer",
		"Boolean", "Byte", "Character", "Short", "Integer", "Long", "Float", "Double", "Number", "Void",
		"Math", "StrictMath", "System", "Runtime", "Process", "Thread", "ThreadLocal", "Runnable",
		"Iterable", "Comparable", "AutoCloseable", "Cloneable", "Enum", "Record", "Class",
		"Throwable", "Exception", "RuntimeException", "Error", "AssertionError",
		"IllegalArgumentException", "IllegalStateException", "NullPointerException",
		"UnsupportedOperationException", "IndexOutOfBoundsException", "ClassCastException",
		"ArithmeticException", "InterruptedException", "CloneNotSupportedException",
		"Override", "Deprecated", "FunctionalInterface", "SuppressWarnings", "SafeVarargs",
	} {
		javaLang[n] = struct{}{}
	}
}

// index knows every type declared in the parsed sources.
type index struct {
	// binary maps the source spelling of a qualified name (Outer.Inner) to
	// its binary form (Outer$Inner).
	binary   map[string]string
	packages map[string]struct{}
}

func newIndex(files []*File) *index {
	idx := &index{binary: make(map[string]string), packages: make(map[string]struct{})}
	for _, f := range files {
		idx.packages[f.Package] = struct{}{}
		for _, t := range f.types {
			q := qualifiedName(f.Package, t.binary)
			idx.binary[strings.ReplaceAll(q, "$", ".")] = q
		}
	}
	return idx
}

func qualifiedName(pkg, binary string) string {
	if pkg == "" {
		return binary
	}
	return pkg + "." + binary
}

// lookup returns the binary name of a dotted qualified name if it is known.
func (idx *index) lookup(dotted string) (string, bool) {
	q, ok := idx.binary[dotted]
	return q, ok
}

// resolver resolves names as seen from inside one declared type.
type resolver struct {
	idx  *index
	file *File
	self *rawType
	// unknownWildcard is the only on-demand import of a package that was
	// not analysed, if there is exactly one.
	unknownWildcard string
	// ignored reports annotations that are not capability tags.
	ignored func(qualified string) bool
}

func newResolver(idx *index, f *File, t *rawType) *resolver {
	r := &resolver{idx: idx, file: f, self: t}
	var unknown []string
	for _, w := range f.wildcards {
		if _, ok := idx.packages[w]; ok {
			continue
		}
		if _, ok := idx.lookup(w); ok {
			continue
		}
		unknown = append(unknown, w)
	}
	if len(unknown) == 1 {
		r.unknownWildcard = unknown[0]
	}
	return r
}

// resolve returns the qualified binary name for name. In strict mode an
// unresolvable name yields "" instead of a same-package guess.
func (r *resolver) resolve(name string, strict bool) string {
	if name == "" {
		return ""
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return r.resolveDotted(name, i)
	}

	// Member types of the enclosing chain, innermost first.
	for scope := r.self.binary; scope != ""; scope = outerOf(scope) {
		if q, ok := r.idx.lookup(strings.ReplaceAll(qualifiedName(r.file.Package, scope+"$"+name), "$", ".")); ok {
			return q
		}
	}
	if imported, ok := r.file.imports[name]; ok {
		if q, ok := r.idx.lookup(imported); ok {
			return q
		}
		return imported
	}
	if q, ok := r.idx.lookup(qualifiedName(r.file.Package, name)); ok {
		return q
	}
	for _, w := range r.file.wildcards {
		if q, ok := r.idx.lookup(w + "." + name); ok {
			return q
		}
	}
	if _, ok := javaLang[name]; ok {
		return "java.lang." + name
	}
	if strict {
		return ""
	}
	if r.unknownWildcard != "" {
		return r.unknownWildcard + "." + name
	}
	return qualifiedName(r.file.Package, name)
}

func (r *resolver) resolveDotted(name string, firstDot int) string {
	if q, ok := r.idx.lookup(name); ok {
		return q
	}
	head := r.resolve(name[:firstDot], true)
	if head == "" {
		return name
	}
	nested := head + "$" + strings.ReplaceAll(name[firstDot+1:], ".", "$")
	if q, ok := r.idx.lookup(strings.ReplaceAll(nested, "$", ".")); ok {
		return q
	}
	return nested
}

func outerOf(binary string) string {
	if i := strings.LastIndexByte(binary, '$'); i >= 0 {
		return binary[:i]
	}
	return ""
}

func (r *resolver) typeRef(ref typeRef) classgraph.TypeRef {
	var out classgraph.TypeRef
	switch {
	case ref.primitive:
		out.Name = ref.name
	case ref.typeVar:
		out.Name = "java.lang.Object"
	default:
		out.Name = r.resolve(ref.name, false)
	}
	out.Name += strings.Repeat("[]", ref.dims)
	for _, a := range ref.args {
		out.Args = append(out.Args, r.typeRef(a))
	}
	return out
}

// collectRefs appends the resolved, non-primitive types mentioned by ref.
func (r *resolver) collectRefs(ref typeRef, into map[string]struct{}) {
	if !ref.primitive && !ref.typeVar && ref.name != "var" {
		if q := r.resolve(ref.name, false); q != "" {
			into[q] = struct{}{}
		}
	}
	for _, a := range ref.args {
		r.collectRefs(a, into)
	}
}

// descriptor builds the class descriptor of the resolver's type.
func (r *resolver) descriptor() classgraph.ClassDescriptor {
	t := r.self
	name := qualifiedName(r.file.Package, t.binary)
	d := classgraph.ClassDescriptor{
		Name:       name,
		SimpleName: t.simple,
		Package:    r.file.Package,
		Shape:      t.shape,
		Visibility: t.vis,
		Static:     t.static,
	}

	for _, a := range t.annotations {
		q := r.resolve(a.name, false)
		if r.ignored != nil && r.ignored(q) {
			continue
		}
		d.Tags = append(d.Tags, q)
	}
	if t.superclass != nil {
		d.Supertypes = append(d.Supertypes, r.typeRef(*t.superclass).Name)
	}
	for _, iface := range t.interfaces {
		ref := r.typeRef(iface)
		d.Interfaces = append(d.Interfaces, classgraph.TypedCapability{Name: ref.Name, Args: ref.Args})
	}

	d.Constructors = append(d.Constructors, t.ctors...)
	generated := r.lombokConstructors()
	d.Constructors = append(d.Constructors, generated...)
	if len(t.ctors) == 0 && len(generated) == 0 {
		d.Constructors = append(d.Constructors, implicitConstructors(t)...)
	} else if t.shape == classgraph.ShapeRecord && !r.hasCanonical(t) {
		d.Constructors = append(d.Constructors, classgraph.Constructor{Params: t.components, Visibility: t.vis})
	}

	for _, m := range t.methods {
		method := classgraph.Method{
			Name:       m.name,
			Visibility: m.vis,
			Static:     m.static,
			Return:     r.typeRef(m.ret),
		}
		for _, p := range m.params {
			method.Params = append(method.Params, r.typeRef(p))
		}
		d.Methods = append(d.Methods, method)
	}

	refs := make(map[string]struct{})
	for _, ref := range t.refs {
		r.collectRefs(ref, refs)
	}
	for _, weak := range t.weakRefs {
		if q := r.resolve(weak, true); q != "" {
			refs[q] = struct{}{}
		}
	}
	delete(refs, name)
	delete(refs, "")
	for _, q := range sortedKeys(refs) {
		d.References = append(d.References, classgraph.Reference{Type: q})
	}
	return d
}

// implicitConstructors returns the constructor the compiler would generate
// for a type that declares none.
func implicitConstructors(t *rawType) []classgraph.Constructor {
	switch t.shape {
	case classgraph.ShapeInterface:
		return nil
	case classgraph.ShapeEnum:
		return []classgraph.Constructor{{Params: 0, Visibility: classgraph.VisibilityPrivate}}
	case classgraph.ShapeRecord:
		return []classgraph.Constructor{{Params: t.components, Visibility: t.vis}}
	}
	return []classgraph.Constructor{{Params: 0, Visibility: t.vis}}
}

// hasCanonical reports whether a record declares its canonical constructor,
// either compactly or with the full component list.
func (r *resolver) hasCanonical(t *rawType) bool {
	if t.compactCtor {
		return true
	}
	for _, c := range t.ctors {
		if c.Params == t.components {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
