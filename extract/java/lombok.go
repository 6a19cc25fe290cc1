package java

import (
	"strings"

	"github.com/c360studio/hexguard/classgraph"
)

// Lombok annotations that generate constructors. Lombok runs at compile time,
// so the constructors exist in the compiled class but not in the source.
const (
	lombokNoArgs       = "lombok.NoArgsConstructor"
	lombokAllArgs      = "lombok.AllArgsConstructor"
	lombokRequiredArgs = "lombok.RequiredArgsConstructor"
	lombokData         = "lombok.Data"
	lombokValue        = "lombok.Value"
	lombokBuilder      = "lombok.Builder"
)

// lombokConstructors returns the constructors Lombok generates for the
// resolver's type, in addition to the declared ones.
func (r *resolver) lombokConstructors() []classgraph.Constructor {
	t := r.self
	if t.shape != classgraph.ShapeClass && t.shape != classgraph.ShapeEnum {
		return nil
	}

	byName := make(map[string]annotation, len(t.annotations))
	for _, a := range t.annotations {
		if q := r.resolve(a.name, false); strings.HasPrefix(q, "lombok.") {
			byName[q] = a
		}
	}
	if len(byName) == 0 {
		return nil
	}
	_, isValue := byName[lombokValue]
	allArgs, required := countLombokParams(t.fields, isValue)

	var out []classgraph.Constructor
	add := func(a annotation, params int) {
		vis, ok := lombokAccess(a.args)
		if !ok {
			return
		}
		if t.shape == classgraph.ShapeEnum {
			vis = classgraph.VisibilityPrivate
		}
		for _, c := range t.ctors {
			if c.Params == params {
				return
			}
		}
		for _, c := range out {
			if c.Params == params {
				return
			}
		}
		out = append(out, classgraph.Constructor{Params: params, Visibility: vis})
	}

	explicit := false
	for _, kind := range []struct {
		name   string
		params int
	}{
		{lombokNoArgs, 0},
		{lombokAllArgs, allArgs},
		{lombokRequiredArgs, required},
	} {
		if a, ok := byName[kind.name]; ok {
			explicit = true
			add(a, kind.params)
		}
	}
	// @Data, @Value and class-level @Builder only generate a constructor
	// when the class has none of its own.
	if explicit || len(t.ctors) > 0 {
		return out
	}
	if _, ok := byName[lombokBuilder]; ok {
		add(annotation{args: "access = AccessLevel.PACKAGE"}, allArgs)
		return out
	}
	if a, ok := byName[lombokValue]; ok {
		add(a, allArgs)
	} else if a, ok := byName[lombokData]; ok {
		add(a, required)
	}
	return out
}

// countLombokParams returns the parameter counts of the all-args and the
// required-args constructor. Under @Value every instance field is final.
func countLombokParams(fields []rawField, allFinal bool) (allArgs, required int) {
	for _, f := range fields {
		if f.static {
			continue
		}
		final := f.final || allFinal
		if final && f.initialized {
			continue
		}
		allArgs++
		if final || (f.nonNull && !f.initialized) {
			required++
		}
	}
	return allArgs, required
}

// lombokAccess reads the visibility of a generated constructor from the
// annotation arguments. ok is false for AccessLevel.NONE.
func lombokAccess(args string) (vis classgraph.Visibility, ok bool) {
	level := ""
	if i := strings.Index(args, "access"); i >= 0 {
		level = args[i:]
	}
	switch {
	case strings.Contains(level, "NONE"):
		return "", false
	case strings.Contains(args, "staticName"), strings.Contains(args, "staticConstructor"):
		// The constructor is private behind a static factory.
		return classgraph.VisibilityPrivate, true
	case strings.Contains(level, "PRIVATE"):
		return classgraph.VisibilityPrivate, true
	case strings.Contains(level, "PROTECTED"):
		return classgraph.VisibilityProtected, true
	case strings.Contains(level, "PACKAGE"), strings.Contains(level, "MODULE"):
		return classgraph.VisibilityPackage, true
	}
	return classgraph.VisibilityPublic, true
}
