package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c360studio/hexguard/classgraph"
	"github.com/c360studio/hexguard/layer"
)

const (
	pkgKernel   = "com.emedina.sharedkernel"
	pkgDomain   = "com.acme.domain"
	pkgCommands = "com.acme.application.commands"
	pkgQueries  = "com.acme.application.queries"
	pkgHandlers = "com.acme.application.handlers"
	pkgIn       = "com.acme.application.ports.in"
	pkgOut      = "com.acme.application.ports.out"
	pkgAdapters = "com.acme.adapters"
)

var vocab = layer.DefaultVocabulary()

func tag(r layer.Role) string { return vocab.Tag(r) }

func typ(k layer.TypeKey) string { return vocab.Type(k) }

func ref(name string) classgraph.TypeRef { return classgraph.TypeRef{Name: name} }

func fixtureConfig() *layer.Config {
	kernel := pkgKernel + ".."
	return &layer.Config{
		SharedKernel: &layer.Packages{Packages: []string{kernel}},
		Domain:       &layer.Packages{Packages: []string{pkgDomain + ".."}, AllowedLibraries: []string{kernel}},
		Command:      &layer.Packages{Packages: []string{pkgCommands + ".."}, AllowedLibraries: []string{kernel}},
		Query:        &layer.Packages{Packages: []string{pkgQueries + ".."}, AllowedLibraries: []string{kernel}},
		Handler: &layer.Packages{Packages: []string{pkgHandlers + ".."}, AllowedLibraries: []string{
			kernel, pkgDomain + "..", pkgCommands + "..", pkgQueries + "..", "com.acme.application.ports..",
		}},
		InputPorts: &layer.Packages{Packages: []string{pkgIn + ".."}, AllowedLibraries: []string{
			kernel, pkgCommands + "..", pkgQueries + "..",
		}},
		OutputPorts: &layer.Packages{Packages: []string{pkgOut + ".."}, AllowedLibraries: []string{kernel, pkgDomain + ".."}},
		Adapters:    &layer.Packages{Packages: []string{pkgAdapters + ".."}},
	}
}

func fixtureRegistry(t *testing.T) *layer.Registry {
	t.Helper()
	reg, err := layer.NewRegistry(fixtureConfig(), vocab, nil)
	require.NoError(t, err)
	return reg
}

func kernelClasses() []classgraph.ClassDescriptor {
	var out []classgraph.ClassDescriptor
	for _, r := range layer.AllRoles {
		out = append(out, classgraph.ClassDescriptor{Name: tag(r), Shape: classgraph.ShapeInterface})
	}
	for _, k := range []layer.TypeKey{layer.TypeCommand, layer.TypeQuery, layer.TypeCommandHandler, layer.TypeQueryHandler} {
		out = append(out, classgraph.ClassDescriptor{Name: typ(k), Shape: classgraph.ShapeInterface})
	}
	return out
}

func factory(self string) classgraph.Method {
	return classgraph.Method{
		Name:       vocab.FactoryMethod,
		Visibility: classgraph.VisibilityPublic,
		Static:     true,
		Return: classgraph.TypeRef{Name: vocab.FactoryResult, Args: []classgraph.TypeRef{
			{Name: "io.vavr.collection.Seq", Args: []classgraph.TypeRef{ref("java.lang.String")}},
			ref(self),
		}},
	}
}

func command(name, base string) classgraph.ClassDescriptor {
	return classgraph.ClassDescriptor{
		Name:         name,
		Interfaces:   []classgraph.TypedCapability{{Name: base}},
		Constructors: []classgraph.Constructor{{Params: 1, Visibility: classgraph.VisibilityPrivate}},
		Methods:      []classgraph.Method{factory(name)},
		References:   []classgraph.Reference{{Type: vocab.FactoryResult}, {Type: base}},
	}
}

// conformingClasses is a small application that satisfies every rule.
func conformingClasses() []classgraph.ClassDescriptor {
	placeOrder := pkgCommands + ".PlaceOrder"
	findOrder := pkgQueries + ".FindOrder"
	return []classgraph.ClassDescriptor{
		{Name: pkgDomain + ".Order", References: []classgraph.Reference{{Type: "java.util.List"}, {Type: pkgDomain + ".OrderId"}}},
		{Name: pkgDomain + ".OrderId", Tags: []string{tag(layer.RoleIdentity)}, References: []classgraph.Reference{{Type: tag(layer.RoleIdentity)}}},
		{Name: pkgDomain + ".OrderRepository", Shape: classgraph.ShapeInterface, Tags: []string{tag(layer.RoleRepository)}},

		command(placeOrder, typ(layer.TypeCommand)),
		command(findOrder, typ(layer.TypeQuery)),

		{
			Name:       pkgIn + ".PlaceOrderUseCase",
			Shape:      classgraph.ShapeInterface,
			Tags:       []string{tag(layer.RoleUseCase)},
			Interfaces: []classgraph.TypedCapability{{Name: typ(layer.TypeCommandHandler), Args: []classgraph.TypeRef{ref(placeOrder)}}},
			References: []classgraph.Reference{{Type: placeOrder}, {Type: typ(layer.TypeCommandHandler)}},
		},
		{
			Name:  pkgIn + ".FindOrderUseCase",
			Shape: classgraph.ShapeInterface,
			Tags:  []string{tag(layer.RoleUseCase)},
			Interfaces: []classgraph.TypedCapability{{Name: typ(layer.TypeQueryHandler), Args: []classgraph.TypeRef{
				ref("java.util.Optional"), ref(findOrder),
			}}},
		},

		{
			Name:       pkgHandlers + ".PlaceOrderHandler",
			Tags:       []string{tag(layer.RoleApplicationService)},
			Interfaces: []classgraph.TypedCapability{{Name: pkgIn + ".PlaceOrderUseCase"}},
			References: []classgraph.Reference{{Type: pkgDomain + ".Order"}, {Type: pkgOut + ".OrderNotifier"}},
		},

		{Name: pkgOut + ".OrderNotifier", Shape: classgraph.ShapeInterface, Tags: []string{tag(layer.RoleOutputPort)}},

		{
			Name:       pkgAdapters + ".JpaOrderRepository",
			Interfaces: []classgraph.TypedCapability{{Name: pkgDomain + ".OrderRepository"}},
			References: []classgraph.Reference{{Type: pkgDomain + ".Order"}},
		},
		{
			Name:       pkgAdapters + ".OrderController",
			References: []classgraph.Reference{{Type: pkgIn + ".PlaceOrderUseCase"}, {Type: "org.springframework.web.bind.annotation.RestController"}},
		},
	}
}

// violatingClasses breaks at least one rule of every layer except the shared kernel.
func violatingClasses() []classgraph.ClassDescriptor {
	return []classgraph.ClassDescriptor{
		{
			Name:       pkgDomain + ".OrderService",
			Tags:       []string{tag(layer.RoleUseCase)},
			References: []classgraph.Reference{{Type: "org.springframework.stereotype.Service"}},
		},
		{
			Name:         pkgCommands + ".CancelOrder",
			Interfaces:   []classgraph.TypedCapability{{Name: typ(layer.TypeCommand)}},
			Constructors: []classgraph.Constructor{{Params: 0, Visibility: classgraph.VisibilityPublic}},
		},
		{Name: pkgCommands + ".NotACommand", Methods: []classgraph.Method{factory(pkgCommands + ".NotACommand")}},
		{
			Name:       pkgHandlers + ".HandlerWithWrongNaming",
			Tags:       []string{tag(layer.RoleApplicationService)},
			Interfaces: []classgraph.TypedCapability{{Name: pkgIn + ".PlaceOrderUseCase"}},
		},
		{
			Name:       pkgHandlers + ".FindOrderHandler",
			Interfaces: []classgraph.TypedCapability{{Name: pkgIn + ".FindOrderUseCase"}},
		},
		{
			Name:       pkgIn + ".BadUseCase",
			Interfaces: []classgraph.TypedCapability{{Name: typ(layer.TypeCommandHandler), Args: []classgraph.TypeRef{ref(pkgCommands + ".NotACommand")}}},
		},
		{Name: pkgOut + ".Mailer"},
		{Name: pkgAdapters + ".OrderView", References: []classgraph.Reference{{Type: pkgDomain + ".Order"}}},
	}
}

func buildModel(t *testing.T, groups ...[]classgraph.ClassDescriptor) *classgraph.Model {
	t.Helper()
	all := kernelClasses()
	for _, g := range groups {
		all = append(all, g...)
	}
	m, err := classgraph.New(all)
	require.NoError(t, err)
	return m
}
