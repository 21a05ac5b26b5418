package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stagekit-dev/stagekit/internal/configval"
	"github.com/stagekit-dev/stagekit/internal/stage"
	stagekiterrors "github.com/stagekit-dev/stagekit/pkg/errors"
)

type fakeStage struct {
	keys      map[string]*configval.Value
	upstreams []string
}

func (f *fakeStage) Configure(req stage.Require) {
	for name, def := range f.keys {
		req.Key(name, def)
	}
	for _, up := range f.upstreams {
		req.Upstream(up)
	}
}

func (f *fakeStage) Execute(ctx stage.ExecContext) (any, error) {
	return nil, nil
}

func value(v configval.Value) *configval.Value { return &v }

func newRegistry(t *testing.T, stages map[string]*fakeStage) *stage.StaticRegistry {
	t.Helper()
	reg := stage.NewStaticRegistry()
	for name, s := range stages {
		require.NoError(t, reg.Register(name, s))
	}
	return reg
}

func TestResolve_DiscoversUpstreamsTransitively(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, map[string]*fakeStage{
		"c": {upstreams: []string{"b"}},
		"b": {upstreams: []string{"a"}},
		"a": {},
	})

	result, err := Resolve(reg, []string{"c"}, configval.FlatConfig{})
	require.NoError(t, err)
	require.Len(t, result.Stages, 3)
	require.Contains(t, result.Stages, "a")
	require.Contains(t, result.Stages, "b")
	require.Contains(t, result.Stages, "c")
}

func TestResolve_MissingConfigKeyWithoutDefault(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, map[string]*fakeStage{
		"a": {keys: map[string]*configval.Value{"threshold": nil}},
	})

	_, err := Resolve(reg, []string{"a"}, configval.FlatConfig{})
	require.Error(t, err)
	var want *stagekiterrors.MissingConfigKeyError
	require.ErrorAs(t, err, &want)
	require.Equal(t, "threshold", want.Key)
	require.Equal(t, []string{"a"}, want.Stages)
}

func TestResolve_UserConfigSatisfiesMissingKey(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, map[string]*fakeStage{
		"a": {keys: map[string]*configval.Value{"threshold": nil}},
	})

	_, err := Resolve(reg, []string{"a"}, configval.FlatConfig{"threshold": int64(3)})
	require.NoError(t, err)
}

func TestResolve_DefaultConflictAcrossStages(t *testing.T) {
	t.Parallel()

	vA := value("a-value")
	vB := value("b-value")
	reg := newRegistry(t, map[string]*fakeStage{
		"a": {keys: map[string]*configval.Value{"mode": vA}},
		"b": {keys: map[string]*configval.Value{"mode": vB}},
	})

	_, err := Resolve(reg, []string{"a", "b"}, configval.FlatConfig{})
	require.Error(t, err)
	var want *stagekiterrors.DefaultValueConflictError
	require.ErrorAs(t, err, &want)
	require.Len(t, want.Conflicts, 1)
	require.Equal(t, "mode", want.Conflicts[0].Key)
}

func TestResolve_SameDefaultAcrossStagesIsNotAConflict(t *testing.T) {
	t.Parallel()

	vA := value("shared")
	vB := value("shared")
	reg := newRegistry(t, map[string]*fakeStage{
		"a": {keys: map[string]*configval.Value{"mode": vA}},
		"b": {keys: map[string]*configval.Value{"mode": vB}},
	})

	_, err := Resolve(reg, []string{"a", "b"}, configval.FlatConfig{})
	require.NoError(t, err)
}

func TestResolvedStage_FilteredConfigPrefersUserValueOverDefault(t *testing.T) {
	t.Parallel()

	def := value("default")
	rs := &ResolvedStage{Keys: map[string]*configval.Value{"mode": def}}

	filtered := rs.FilteredConfig(configval.FlatConfig{"mode": "override"})
	require.Equal(t, configval.Value("override"), filtered["mode"])

	filtered = rs.FilteredConfig(configval.FlatConfig{})
	require.Equal(t, configval.Value("default"), filtered["mode"])
}
