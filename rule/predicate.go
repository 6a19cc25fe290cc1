// Package rule provides the predicate and condition library used to express
// architecture rules, and the evaluation of a rule against a class model.
package rule

import (
	"fmt"
	"strings"

	"github.com/c360studio/hexguard/classgraph"
)

// Predicate selects the classes a rule applies to.
type Predicate struct {
	Description string
	Test        func(c *classgraph.Class) bool
}

// And returns a predicate that holds when both p and other hold.
func (p Predicate) And(other Predicate) Predicate {
	return Predicate{
		Description: p.Description + " and " + other.Description,
		Test: func(c *classgraph.Class) bool {
			return p.Test(c) && other.Test(c)
		},
	}
}

// Not negates a predicate.
func Not(p Predicate) Predicate {
	return Predicate{
		Description: "not " + p.Description,
		Test: func(c *classgraph.Class) bool {
			return !p.Test(c)
		},
	}
}

// ResideInAnyPackage selects classes whose package matches any of patterns.
func ResideInAnyPackage(patterns ...string) Predicate {
	ps := append([]string(nil), patterns...)
	return Predicate{
		Description: fmt.Sprintf("reside in any package [%s]", quoteAll(ps)),
		Test: func(c *classgraph.Class) bool {
			return c.ResidesIn(ps...)
		},
	}
}

// ImplementCapabilityTagged selects classes implementing a capability whose
// declaring type carries tag.
func ImplementCapabilityTagged(tag string) Predicate {
	return Predicate{
		Description: fmt.Sprintf("implement a %s interface", shortName(tag)),
		Test: func(c *classgraph.Class) bool {
			return c.ImplementsCapabilityTagged(tag)
		},
	}
}

// AssignableTo selects classes assignable to target.
func AssignableTo(target string) Predicate {
	return Predicate{
		Description: fmt.Sprintf("are assignable to %s", shortName(target)),
		Test: func(c *classgraph.Class) bool {
			return c.IsAssignableTo(target)
		},
	}
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, ", ")
}

// shortName renders a qualified name by its simple name for descriptions.
func shortName(qualified string) string {
	return classgraph.SimpleNameOf(qualified)
}
