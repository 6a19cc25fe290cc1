package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/hexguard/classgraph"
)

func sampleClasses() []classgraph.ClassDescriptor {
	return []classgraph.ClassDescriptor{
		{
			Name:       "com.acme.application.ports.in.PlaceOrderUseCase",
			Shape:      classgraph.ShapeInterface,
			Visibility: classgraph.VisibilityPublic,
			Tags:       []string{"com.emedina.sharedkernel.application.annotation.UseCase"},
			Interfaces: []classgraph.TypedCapability{{
				Name: "com.emedina.sharedkernel.command.core.CommandHandler",
				Args: []classgraph.TypeRef{{Name: "com.acme.application.commands.PlaceOrder"}},
			}},
		},
		{
			Name:         "com.acme.application.commands.PlaceOrder",
			Constructors: []classgraph.Constructor{{Params: 1, Visibility: classgraph.VisibilityPrivate}},
			Methods: []classgraph.Method{{
				Name:       "validateThenCreate",
				Visibility: classgraph.VisibilityPublic,
				Static:     true,
				Return: classgraph.TypeRef{Name: "io.vavr.control.Validation", Args: []classgraph.TypeRef{
					{Name: "io.vavr.collection.Seq"}, {Name: "com.acme.application.commands.PlaceOrder"},
				}},
			}},
			References: []classgraph.Reference{{Type: "io.vavr.control.Validation"}},
		},
	}
}

func TestSnapshot_JSONAndYAML(t *testing.T) {
	for _, name := range []string{"model.json", "model.yaml", "nested/dir/model.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, SaveSnapshot(path, sampleClasses()))

			got, err := LoadSnapshot(path)
			require.NoError(t, err)
			assert.Equal(t, sampleClasses(), got)

			m, err := classgraph.New(got)
			require.NoError(t, err)
			assert.Equal(t, 2, m.Len())
		})
	}
}

func TestLoadSnapshot_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSnapshot(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	_, err = LoadSnapshot(bad)
	assert.Error(t, err)

	future := filepath.Join(dir, "future.yaml")
	require.NoError(t, os.WriteFile(future, []byte("version: 2\nclasses: []\n"), 0644))
	_, err = LoadSnapshot(future)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestSaveSnapshot_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, SaveSnapshot(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"classes": []`)
}
