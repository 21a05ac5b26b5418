package stage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type dummyModule struct{}

func TestStaticRegistry_RejectsDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := NewStaticRegistry()
	require.NoError(t, reg.Register("a", dummyModule{}))

	err := reg.Register("a", dummyModule{})
	require.Error(t, err)
}

func TestStaticRegistry_RejectsNilModule(t *testing.T) {
	t.Parallel()

	reg := NewStaticRegistry()
	err := reg.Register("a", nil)
	require.Error(t, err)
}

func TestStaticRegistry_LoadUnknownNameErrors(t *testing.T) {
	t.Parallel()

	reg := NewStaticRegistry()
	_, err := reg.Load("missing")
	require.Error(t, err)
}

func TestStaticRegistry_LoadReturnsRegisteredModule(t *testing.T) {
	t.Parallel()

	reg := NewStaticRegistry()
	m := dummyModule{}
	require.NoError(t, reg.Register("a", m))

	got, err := reg.Load("a")
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestStaticRegistry_NamesListsRegistered(t *testing.T) {
	t.Parallel()

	reg := NewStaticRegistry()
	require.NoError(t, reg.Register("a", dummyModule{}))
	require.NoError(t, reg.Register("b", dummyModule{}))

	require.ElementsMatch(t, []string{"a", "b"}, reg.Names())
}
