package layer

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullConfig() *Config {
	return &Config{
		SharedKernel: &Packages{Packages: []string{"com.acme.sharedkernel.."}},
		Domain:       &Packages{Packages: []string{"com.acme.domain.."}, AllowedLibraries: []string{"com.acme.sharedkernel.."}},
		Command:      &Packages{Packages: []string{"com.acme.application.commands.."}},
		Query:        &Packages{Packages: []string{"com.acme.application.queries.."}},
		Handler:      &Packages{Packages: []string{"com.acme.application.handlers.."}},
		InputPorts:   &Packages{Packages: []string{"com.acme.application.ports.in.."}},
		OutputPorts:  &Packages{Packages: []string{"com.acme.application.ports.out.."}},
		Adapters:     &Packages{Packages: []string{"com.acme.adapters.."}},
	}
}

func TestNewRegistry_ConfigAbsent(t *testing.T) {
	_, err := NewRegistry(nil, DefaultVocabulary(), nil)
	assert.ErrorIs(t, err, ErrConfigAbsent)
}

func TestNewRegistry_MissingPackages(t *testing.T) {
	cfg := fullConfig()
	cfg.Query = nil
	cfg.Adapters = &Packages{}

	_, err := NewRegistry(cfg, DefaultVocabulary(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingPackages))
	assert.Contains(t, err.Error(), string(Query))
	assert.Contains(t, err.Error(), string(Adapter))
}

func TestNewRegistry_InvalidPattern(t *testing.T) {
	cfg := fullConfig()
	cfg.Domain.AllowedLibraries = []string{"com...acme"}

	_, err := NewRegistry(cfg, DefaultVocabulary(), nil)
	assert.ErrorIs(t, err, ErrInvalidPattern)
	assert.Contains(t, err.Error(), "domain")
}

func TestNewRegistry_UnknownPolicy(t *testing.T) {
	cfg := fullConfig()
	cfg.DefaultsPolicy = "sometimes"
	_, err := NewRegistry(cfg, DefaultVocabulary(), nil)
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestNewRegistry_LayersInOrder(t *testing.T) {
	r, err := NewRegistry(fullConfig(), DefaultVocabulary(), nil)
	require.NoError(t, err)

	var names []Name
	for _, l := range r.Layers() {
		names = append(names, l.Name)
	}
	assert.Equal(t, All, names)
	assert.Equal(t, PolicyAlways, r.Policy())

	l, ok := r.Layer(InputPort)
	require.True(t, ok)
	assert.True(t, l.Constraints.Interface)
}

func TestNewRegistry_AlwaysPolicyAllowlist(t *testing.T) {
	r, err := NewRegistry(fullConfig(), DefaultVocabulary(), nil)
	require.NoError(t, err)

	domain, _ := r.Layer(Domain)
	assert.Equal(t, []string{
		"com.acme.sharedkernel..",
		"java..", "javax..", "lombok..", "io.vavr..", "org.apache.commons..",
		"com.acme.domain..",
	}, domain.Allowed)

	command, _ := r.Layer(Command)
	assert.Nil(t, command.AllowedLibraries)
	assert.Equal(t, []string{
		"java..", "javax..", "lombok..", "io.vavr..", "org.apache.commons..",
		"com.acme.application.commands..",
	}, command.Allowed)
}

func TestNewRegistry_LegacyPolicyAllowlist(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := fullConfig()
	cfg.DefaultsPolicy = PolicyLegacy
	r, err := NewRegistry(cfg, DefaultVocabulary(), logger)
	require.NoError(t, err)

	domain, _ := r.Layer(Domain)
	assert.Contains(t, domain.Allowed, "java..")

	command, _ := r.Layer(Command)
	assert.Equal(t, []string{"com.acme.application.commands.."}, command.Allowed)

	assert.Contains(t, buf.String(), "layer=command")
	assert.NotContains(t, buf.String(), "layer=domain")
	assert.NotContains(t, buf.String(), "layer=adapter", "adapters have no allowlist rule")
}

func TestNewRegistry_CustomDefaults(t *testing.T) {
	cfg := fullConfig()
	cfg.DefaultLibraries = []string{"java.."}
	r, err := NewRegistry(cfg, DefaultVocabulary(), nil)
	require.NoError(t, err)

	kernel, _ := r.Layer(SharedKernel)
	assert.Equal(t, []string{"java..", "com.acme.sharedkernel.."}, kernel.Allowed)
}

func TestRegistry_PackagesOf(t *testing.T) {
	r, err := NewRegistry(fullConfig(), DefaultVocabulary(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"com.acme.domain..", "com.acme.application.handlers.."}, r.PackagesOf(Domain, Handler))
}

func TestRegistry_CopiesConfig(t *testing.T) {
	cfg := fullConfig()
	r, err := NewRegistry(cfg, DefaultVocabulary(), nil)
	require.NoError(t, err)

	cfg.Domain.Packages[0] = "mutated"
	domain, _ := r.Layer(Domain)
	assert.Equal(t, []string{"com.acme.domain.."}, domain.Packages)
}

func TestDefaultConstraints(t *testing.T) {
	assert.Len(t, DefaultConstraints(Command).ForbiddenCapabilities, 9)
	assert.NotContains(t, DefaultConstraints(Handler).ForbiddenCapabilities, RoleApplicationService)
	assert.Len(t, DefaultConstraints(Handler).ForbiddenCapabilities, 8)
	assert.False(t, DefaultConstraints(Adapter).CheckDependencies)
	assert.Equal(t, []Name{Domain, Handler}, DefaultConstraints(Adapter).IsolateFrom)

	gen := DefaultConstraints(InputPort).GenericArguments
	require.Len(t, gen, 2)
	assert.Equal(t, 1, gen[0].Position)
	assert.Equal(t, 2, gen[1].Position)
}

func TestVocabulary_Merge(t *testing.T) {
	base := DefaultVocabulary()
	merged := base.Merge(Vocabulary{
		Tags:          map[Role]string{RoleUseCase: "org.example.UseCase", RoleAdapter: ""},
		FactoryMethod: "of",
	})

	assert.Equal(t, "org.example.UseCase", merged.Tag(RoleUseCase))
	assert.Equal(t, base.Tag(RoleAdapter), merged.Tag(RoleAdapter))
	assert.Equal(t, "of", merged.FactoryMethod)
	assert.Equal(t, base.FactoryResult, merged.FactoryResult)
	assert.NotEqual(t, "org.example.UseCase", base.Tag(RoleUseCase), "merge must not modify the receiver")
	assert.Equal(t, []string{base.Tag(RoleRepository), base.Tag(RoleFactory)}, base.TagsOf([]Role{RoleRepository, RoleFactory}))
}
