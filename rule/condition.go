package rule

import (
	"fmt"
	"strings"

	"github.com/c360studio/hexguard/classgraph"
)

// Event is the outcome of checking one aspect of a class against a condition.
// A must rule reports the events that are not satisfied; a must-not rule
// reports the events that are.
type Event struct {
	Satisfied bool
	Message   string
}

// Condition checks one class at a time.
type Condition interface {
	Description() string
	Evaluate(c *classgraph.Class) []Event
}

type conditionFunc struct {
	desc string
	fn   func(c *classgraph.Class) []Event
}

func (f conditionFunc) Description() string                  { return f.desc }
func (f conditionFunc) Evaluate(c *classgraph.Class) []Event { return f.fn(c) }

// NewCondition builds a Condition from a description and a check function.
func NewCondition(description string, fn func(c *classgraph.Class) []Event) Condition {
	return conditionFunc{desc: description, fn: fn}
}

func satisfied(format string, args ...any) Event {
	return Event{Satisfied: true, Message: fmt.Sprintf(format, args...)}
}

func violated(format string, args ...any) Event {
	return Event{Satisfied: false, Message: fmt.Sprintf(format, args...)}
}

// DependencyAllowlist is violated once per outgoing reference whose package
// matches none of allowed.
func DependencyAllowlist(allowed []string) Condition {
	patterns := append([]string(nil), allowed...)
	return NewCondition(
		fmt.Sprintf("only depend on classes that reside in any package [%s]", quoteAll(patterns)),
		func(c *classgraph.Class) []Event {
			outside := c.ReferencesOutside(patterns...)
			if len(outside) == 0 {
				return []Event{satisfied("Class <%s> only depends on allowed packages", c.Name())}
			}
			events := make([]Event, 0, len(outside))
			for _, ref := range outside {
				events = append(events, violated("Class <%s> depends on <%s> in package '%s', which is not allowed",
					c.Name(), ref.Type, ref.TargetPackage()))
			}
			return events
		})
}

// DependOnAnyPackage is satisfied once per outgoing reference into one of
// patterns. It is meant for must-not rules.
func DependOnAnyPackage(patterns []string) Condition {
	ps := append([]string(nil), patterns...)
	return NewCondition(
		fmt.Sprintf("depend on classes that reside in any package [%s]", quoteAll(ps)),
		func(c *classgraph.Class) []Event {
			inside := c.ReferencesInside(ps...)
			if len(inside) == 0 {
				return []Event{violated("Class <%s> does not depend on any class in [%s]", c.Name(), quoteAll(ps))}
			}
			events := make([]Event, 0, len(inside))
			for _, ref := range inside {
				events = append(events, satisfied("Class <%s> depends on <%s> in package '%s'",
					c.Name(), ref.Type, ref.TargetPackage()))
			}
			return events
		})
}

// ForbiddenCapabilities is violated once per listed tag the class carries.
func ForbiddenCapabilities(tags ...string) Condition {
	forbidden := append([]string(nil), tags...)
	return NewCondition(
		fmt.Sprintf("not be tagged with any of [%s]", tagList(forbidden)),
		func(c *classgraph.Class) []Event {
			var events []Event
			for _, tag := range forbidden {
				if c.HasCapability(tag) {
					events = append(events, violated("Class <%s> is tagged with @%s, which is forbidden",
						c.Name(), shortName(tag)))
				}
			}
			if len(events) == 0 {
				return []Event{satisfied("Class <%s> carries no forbidden capability", c.Name())}
			}
			return events
		})
}

// RequiredCapabilitySet is violated when the class carries tags but none of
// allowed. A class without tags always satisfies it.
func RequiredCapabilitySet(allowed ...string) Condition {
	set := append([]string(nil), allowed...)
	return NewCondition(
		fmt.Sprintf("be tagged with one of [%s] or not be tagged at all", tagList(set)),
		func(c *classgraph.Class) []Event {
			if !c.HasAnyCapability() {
				return []Event{satisfied("Class <%s> has no capability tags", c.Name())}
			}
			for _, tag := range set {
				if c.HasCapability(tag) {
					return []Event{satisfied("Class <%s> is tagged with @%s", c.Name(), shortName(tag))}
				}
			}
			return []Event{violated("Class <%s> has capability tags, but none of the allowed ones", c.Name())}
		})
}

// MustHaveCapability is violated when the class lacks tag.
func MustHaveCapability(tag string) Condition {
	return NewCondition(
		fmt.Sprintf("be tagged with @%s", shortName(tag)),
		func(c *classgraph.Class) []Event {
			if c.HasCapability(tag) {
				return []Event{satisfied("Class <%s> is tagged with @%s", c.Name(), shortName(tag))}
			}
			return []Event{violated("Class <%s> is not tagged with @%s", c.Name(), shortName(tag))}
		})
}

// MustBeShape is violated when the declared shape differs from shape.
// Records and enums count as classes.
func MustBeShape(shape classgraph.Shape) Condition {
	return NewCondition(
		"be "+withArticle(string(shape)),
		func(c *classgraph.Class) []Event {
			actual := c.Shape()
			if actual == classgraph.ShapeRecord || actual == classgraph.ShapeEnum {
				actual = classgraph.ShapeClass
			}
			if actual == shape {
				return []Event{satisfied("Class <%s> is %s", c.Name(), withArticle(string(shape)))}
			}
			return []Event{violated("Class <%s> is not %s", c.Name(), withArticle(string(shape)))}
		})
}

// MustBeAssignableToAny is violated when the class is assignable to none of bases.
func MustBeAssignableToAny(bases ...string) Condition {
	targets := append([]string(nil), bases...)
	names := make([]string, len(targets))
	for i, b := range targets {
		names[i] = shortName(b)
	}
	return NewCondition(
		"be assignable to "+strings.Join(names, " or "),
		func(c *classgraph.Class) []Event {
			for _, b := range targets {
				if c.IsAssignableTo(b) {
					return []Event{satisfied("Class <%s> is assignable to %s", c.Name(), shortName(b))}
				}
			}
			return []Event{violated("Class <%s> is not assignable to %s", c.Name(), strings.Join(names, " or "))}
		})
}

// GenericArgumentAssignable checks, for every implemented parameterized
// capability that has an argument at position (1-based), that the argument's
// erased type is assignable to base. Capabilities without an argument at that
// position are not applicable and produce no event.
func GenericArgumentAssignable(base string, position int) Condition {
	return NewCondition(
		fmt.Sprintf("have a generic type assignable to %s", shortName(base)),
		func(c *classgraph.Class) []Event {
			var events []Event
			for _, iface := range c.Interfaces() {
				arg, ok := c.GenericArgumentAt(iface.Name, position)
				if !ok {
					continue
				}
				if c.Model().IsAssignable(arg, base) {
					events = append(events, satisfied("Class <%s> has a generic type %s at position %d assignable to %s",
						c.Name(), shortName(arg), position, shortName(base)))
					continue
				}
				events = append(events, violated("Class <%s> has a generic type %s at position %d that is not assignable to %s",
					c.Name(), shortName(arg), position, shortName(base)))
			}
			return events
		})
}

// FactoryContract requires a public static factory method described by spec
// and forbids a public zero-argument constructor. Each broken half yields its
// own violation.
func FactoryContract(spec classgraph.FactorySpec) Condition {
	return NewCondition(
		fmt.Sprintf("have a valid %s method and no public default constructor", spec.Method),
		func(c *classgraph.Class) []Event {
			var events []Event
			if !c.HasFactoryMethod(spec) {
				events = append(events, violated("Class <%s> does not have a valid %s method", c.Name(), spec.Method))
			}
			if c.HasPublicZeroArgConstructor() {
				events = append(events, violated("Class <%s> has a public default constructor", c.Name()))
			}
			if len(events) == 0 {
				return []Event{satisfied("Class <%s> is only created through %s", c.Name(), spec.Method)}
			}
			return events
		})
}

// NamingDerivation requires, for every implemented capability whose declaring
// type carries tag, that the class is named after it: the capability's simple
// name without stripSuffix, followed by appendSuffix.
func NamingDerivation(tag, stripSuffix, appendSuffix string) Condition {
	return NewCondition(
		fmt.Sprintf("be named after the @%s it implements (-%s +%s)", shortName(tag), stripSuffix, appendSuffix),
		func(c *classgraph.Class) []Event {
			var events []Event
			for _, iface := range c.TaggedCapabilities(tag) {
				expected := strings.TrimSuffix(iface.SimpleName(), stripSuffix) + appendSuffix
				if c.SimpleName() == expected {
					events = append(events, satisfied("%s implements %s and is named accordingly",
						c.SimpleName(), iface.SimpleName()))
					continue
				}
				events = append(events, violated("%s implements %s, but is not named %s",
					c.SimpleName(), iface.SimpleName(), expected))
			}
			return events
		})
}

func tagList(tags []string) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = "@" + shortName(t)
	}
	return strings.Join(names, ", ")
}

func withArticle(word string) string {
	if word == "" {
		return word
	}
	switch word[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return "an " + word
	}
	return "a " + word
}
