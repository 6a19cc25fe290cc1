package rule

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c360studio/hexguard/classgraph"
)

const (
	tagUseCase            = "com.acme.sharedkernel.application.annotation.UseCase"
	tagApplicationService = "com.acme.sharedkernel.application.annotation.ApplicationService"
	tagRepository         = "com.acme.sharedkernel.domain.repository.annotation.Repository"
	tagValueObject        = "com.acme.sharedkernel.domain.model.annotation.ValueObject"
	tagDomainService      = "com.acme.sharedkernel.domain.service.annotation.DomainService"

	typeCommand        = "com.acme.sharedkernel.command.Command"
	typeQuery          = "com.acme.sharedkernel.query.Query"
	typeCommandHandler = "com.acme.sharedkernel.command.core.CommandHandler"
	typeQueryHandler   = "com.acme.sharedkernel.query.core.QueryHandler"
	typeValidation     = "io.vavr.control.Validation"

	factoryMethod = "validateThenCreate"
)

var factorySpec = classgraph.FactorySpec{Method: factoryMethod, ResultType: typeValidation}

// kernel returns the shared-kernel marker and base types every fixture model needs.
func kernel() []classgraph.ClassDescriptor {
	return []classgraph.ClassDescriptor{
		{Name: tagUseCase, Shape: classgraph.ShapeInterface},
		{Name: tagApplicationService, Shape: classgraph.ShapeInterface},
		{Name: tagRepository, Shape: classgraph.ShapeInterface},
		{Name: tagValueObject, Shape: classgraph.ShapeInterface},
		{Name: typeCommand, Shape: classgraph.ShapeInterface},
		{Name: typeQuery, Shape: classgraph.ShapeInterface},
		{Name: typeCommandHandler, Shape: classgraph.ShapeInterface},
		{Name: typeQueryHandler, Shape: classgraph.ShapeInterface},
	}
}

func buildModel(t *testing.T, classes ...classgraph.ClassDescriptor) *classgraph.Model {
	t.Helper()
	m, err := classgraph.New(append(kernel(), classes...))
	require.NoError(t, err)
	return m
}

func mustClass(t *testing.T, m *classgraph.Model, name string) *classgraph.Class {
	t.Helper()
	c, ok := m.Class(name)
	require.True(t, ok, "class %s not in model", name)
	return c
}

func factoryOf(self string) classgraph.Method {
	return classgraph.Method{
		Name:       factoryMethod,
		Visibility: classgraph.VisibilityPublic,
		Static:     true,
		Return: classgraph.TypeRef{Name: typeValidation, Args: []classgraph.TypeRef{
			{Name: "io.vavr.collection.Seq", Args: []classgraph.TypeRef{{Name: "java.lang.String"}}},
			{Name: self},
		}},
	}
}

// validCommand mirrors a command with a private constructor and a proper factory.
func validCommand() classgraph.ClassDescriptor {
	const name = "com.acme.fixtures.commands.ValidCommand"
	return classgraph.ClassDescriptor{
		Name:         name,
		Interfaces:   []classgraph.TypedCapability{{Name: typeCommand}},
		Constructors: []classgraph.Constructor{{Params: 1, Visibility: classgraph.VisibilityPrivate}},
		Methods:      []classgraph.Method{factoryOf(name)},
	}
}

func sampleUseCase() classgraph.ClassDescriptor {
	return classgraph.ClassDescriptor{
		Name:  "com.acme.fixtures.handlers.SampleUseCase",
		Shape: classgraph.ShapeInterface,
		Tags:  []string{tagUseCase},
	}
}

func handlerNamed(simple string) classgraph.ClassDescriptor {
	return classgraph.ClassDescriptor{
		Name:       "com.acme.fixtures.handlers." + simple,
		Tags:       []string{tagApplicationService},
		Interfaces: []classgraph.TypedCapability{{Name: "com.acme.fixtures.handlers.SampleUseCase"}},
	}
}
