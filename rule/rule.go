package rule

import (
	"sort"

	"github.com/c360studio/hexguard/classgraph"
)

// Polarity states whether selected classes must or must not satisfy a condition.
type Polarity int

const (
	// Must reports every violated event of a selected class.
	Must Polarity = iota
	// MustNot reports every satisfied event of a selected class.
	MustNot
)

// Rule is a selector, a condition and a polarity. Rules are built fresh for
// every evaluation and never persisted; ID is the stable identity used by the
// baseline store.
type Rule struct {
	ID        string
	Layer     string
	Name      string
	Selector  Predicate
	Condition Condition
	Polarity  Polarity
}

// Description renders the rule as a sentence.
func (r Rule) Description() string {
	prefix := "classes that "
	if r.Polarity == MustNot {
		prefix = "no classes that "
	}
	return prefix + r.Selector.Description + " should " + r.Condition.Description()
}

// Violation is one failure of a rule for one class.
type Violation struct {
	Class   string `json:"class" yaml:"class"`
	Message string `json:"message" yaml:"message"`
}

// Signature is the key a violation is remembered by in a baseline.
func (v Violation) Signature() string {
	return v.Class + "\x1f" + v.Message
}

// Evaluate checks every class of m matched by the selector. Classes the
// selector rejects are never passed to the condition. An empty selection
// passes trivially. The result is sorted and free of duplicates.
func (r Rule) Evaluate(m *classgraph.Model) []Violation {
	var out []Violation
	seen := make(map[string]struct{})
	for _, c := range m.Classes() {
		if !r.Selector.Test(c) {
			continue
		}
		for _, e := range r.Condition.Evaluate(c) {
			if e.Satisfied == (r.Polarity == Must) {
				continue
			}
			v := Violation{Class: c.Name(), Message: e.Message}
			if _, dup := seen[v.Signature()]; dup {
				continue
			}
			seen[v.Signature()] = struct{}{}
			out = append(out, v)
		}
	}
	SortViolations(out)
	return out
}

// SortViolations orders violations by class, then message.
func SortViolations(vs []Violation) {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].Class != vs[j].Class {
			return vs[i].Class < vs[j].Class
		}
		return vs[i].Message < vs[j].Message
	})
}
