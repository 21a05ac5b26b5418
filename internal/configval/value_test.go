package configval

import (
	"testing"

	"github.com/stretchr/testify/require"

	stagekiterrors "github.com/stagekit-dev/stagekit/pkg/errors"
)

func TestFlatten_StripsWorkdirAndStages(t *testing.T) {
	t.Parallel()

	top, err := Flatten(map[string]any{
		"working_directory": "/tmp/ws",
		"stages":             []any{"a", "b"},
		"timeout":            5,
	})
	require.NoError(t, err)
	require.Equal(t, "/tmp/ws", top.WorkingDirectory)
	require.Equal(t, []string{"a", "b"}, top.Stages)
	require.Equal(t, int64(5), top.Flat["timeout"])
}

func TestFlatten_NestedMapsUseDottedKeys(t *testing.T) {
	t.Parallel()

	top, err := Flatten(map[string]any{
		"working_directory": "/tmp/ws",
		"stages":             []any{"a"},
		"db": map[string]any{
			"host": "localhost",
			"port": 5432,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "localhost", top.Flat["db.host"])
	require.Equal(t, int64(5432), top.Flat["db.port"])
}

func TestFlatten_MissingWorkingDirectory(t *testing.T) {
	t.Parallel()

	_, err := Flatten(map[string]any{"stages": []any{"a"}})
	require.Error(t, err)
	var want *stagekiterrors.MissingWorkspaceError
	require.ErrorAs(t, err, &want)
}

func TestFlatten_MissingStagesList(t *testing.T) {
	t.Parallel()

	_, err := Flatten(map[string]any{"working_directory": "/tmp/ws"})
	require.Error(t, err)
	var want *stagekiterrors.MissingStagesListError
	require.ErrorAs(t, err, &want)
}

func TestFlatten_RejectsDotInKey(t *testing.T) {
	t.Parallel()

	_, err := Flatten(map[string]any{
		"working_directory": "/tmp/ws",
		"stages":             []any{"a"},
		"bad.key":            "value",
	})
	require.Error(t, err)
	var want *stagekiterrors.InvalidConfigKeyError
	require.ErrorAs(t, err, &want)
}

func TestFlatten_RejectsNonScalarLeaf(t *testing.T) {
	t.Parallel()

	_, err := Flatten(map[string]any{
		"working_directory": "/tmp/ws",
		"stages":             []any{"a"},
		"items":              []any{1, 2, 3},
	})
	require.Error(t, err)
	var want *stagekiterrors.InvalidConfigValueTypeError
	require.ErrorAs(t, err, &want)
}

func TestNormalize_CoercesIntegerWidths(t *testing.T) {
	t.Parallel()

	require.Equal(t, int64(7), Normalize(int8(7)))
	require.Equal(t, int64(7), Normalize(uint32(7)))
	require.Equal(t, float64(1.5), Normalize(float32(1.5)))
	require.Equal(t, "x", Normalize("x"))
}

func TestIsScalar(t *testing.T) {
	t.Parallel()

	require.True(t, IsScalar("x"))
	require.True(t, IsScalar(true))
	require.True(t, IsScalar(42))
	require.True(t, IsScalar(3.14))
	require.False(t, IsScalar([]string{"x"}))
	require.False(t, IsScalar(map[string]any{}))
}
