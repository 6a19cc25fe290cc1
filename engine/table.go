package engine

import (
	"strings"

	"github.com/c360studio/hexguard/classgraph"
	"github.com/c360studio/hexguard/layer"
	"github.com/c360studio/hexguard/rule"
)

// Rule names, unique within a layer. A rule's ID is "<layer>/<name>".
const (
	RuleAllowedDependencies   = "allowed-dependencies"
	RuleAllowedCapabilities   = "allowed-capabilities"
	RuleForbiddenCapabilities = "forbidden-capabilities"
	RuleRequiredCapability    = "required-capability"
	RuleInterface             = "interface"
	RuleAssignable            = "assignable"
	RuleGenericArgument       = "generic-argument"
	RuleFactoryContract       = "factory-contract"
	RuleNaming                = "naming"
	RuleIsolation             = "isolation"
)

// RuleID joins a layer and a rule name.
func RuleID(l layer.Name, name string) string {
	return string(l) + "/" + name
}

// BuildRules instantiates the rules of every layer in evaluation order.
func BuildRules(reg *layer.Registry) []rule.Rule {
	var out []rule.Rule
	for _, l := range reg.Layers() {
		out = append(out, layerRules(reg, l)...)
	}
	return out
}

func layerRules(reg *layer.Registry, l *layer.Layer) []rule.Rule {
	vocab := reg.Vocabulary()
	c := l.Constraints
	inLayer := rule.ResideInAnyPackage(l.Packages...)

	var rules []rule.Rule
	add := func(name string, sel rule.Predicate, cond rule.Condition, pol rule.Polarity) {
		rules = append(rules, rule.Rule{
			ID:        RuleID(l.Name, name),
			Layer:     string(l.Name),
			Name:      name,
			Selector:  sel,
			Condition: cond,
			Polarity:  pol,
		})
	}

	if c.CheckDependencies {
		add(RuleAllowedDependencies, inLayer, rule.DependencyAllowlist(l.Allowed), rule.Must)
	}
	if len(c.AllowedCapabilities) > 0 {
		add(RuleAllowedCapabilities, inLayer, rule.RequiredCapabilitySet(vocab.TagsOf(c.AllowedCapabilities)...), rule.Must)
	}
	if len(c.ForbiddenCapabilities) > 0 {
		add(RuleForbiddenCapabilities, inLayer, rule.ForbiddenCapabilities(vocab.TagsOf(c.ForbiddenCapabilities)...), rule.Must)
	}
	if c.RequiredCapability != "" {
		sel := inLayer
		if c.RequiredScope != "" {
			sel = sel.And(rule.ImplementCapabilityTagged(vocab.Tag(c.RequiredScope)))
		}
		add(RuleRequiredCapability, sel, rule.MustHaveCapability(vocab.Tag(c.RequiredCapability)), rule.Must)
	}
	if c.Interface {
		add(RuleInterface, inLayer, rule.MustBeShape(classgraph.ShapeInterface), rule.Must)
	}
	if len(c.AssignableTo) > 0 {
		bases := make([]string, 0, len(c.AssignableTo))
		for _, k := range c.AssignableTo {
			bases = append(bases, vocab.Type(k))
		}
		add(RuleAssignable, inLayer, rule.MustBeAssignableToAny(bases...), rule.Must)
	}
	for _, g := range c.GenericArguments {
		name := RuleGenericArgument + "-" + strings.ReplaceAll(string(g.Capability), "_", "-")
		sel := inLayer.And(rule.AssignableTo(vocab.Type(g.Capability)))
		add(name, sel, rule.GenericArgumentAssignable(vocab.Type(g.Base), g.Position), rule.Must)
	}
	if c.Factory {
		spec := classgraph.FactorySpec{Method: vocab.FactoryMethod, ResultType: vocab.FactoryResult, Slots: 2}
		add(RuleFactoryContract, inLayer, rule.FactoryContract(spec), rule.Must)
	}
	if c.Naming != nil {
		tag := vocab.Tag(c.Naming.Scope)
		sel := inLayer.And(rule.ImplementCapabilityTagged(tag))
		add(RuleNaming, sel, rule.NamingDerivation(tag, c.Naming.StripSuffix, c.Naming.AppendSuffix), rule.Must)
	}
	if len(c.IsolateFrom) > 0 {
		sel := inLayer
		if c.ExemptRole != "" {
			sel = sel.And(rule.Not(rule.ImplementCapabilityTagged(vocab.Tag(c.ExemptRole))))
		}
		add(RuleIsolation, sel, rule.DependOnAnyPackage(reg.PackagesOf(c.IsolateFrom...)), rule.MustNot)
	}
	return rules
}
