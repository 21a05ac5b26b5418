package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stagekit-dev/stagekit/internal/configval"
	"github.com/stagekit-dev/stagekit/internal/stage"
	stagekiterrors "github.com/stagekit-dev/stagekit/pkg/errors"
)

type chainStage struct {
	upstream string
	mode     *configval.Value
}

func (s *chainStage) Configure(req stage.Require) {
	if s.upstream != "" {
		req.Upstream(s.upstream)
	}
	req.Key("mode", s.mode)
}

func (s *chainStage) Execute(ctx stage.ExecContext) (any, error) {
	mode, _ := ctx.Config("mode")
	if s.upstream == "" {
		return fmt.Sprintf("root:%v", mode), nil
	}
	upstream, err := ctx.Stage(s.upstream)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("%s>%v", string(upstream), mode), nil
}

func newLinearRegistry(t *testing.T, mode configval.Value) *stage.StaticRegistry {
	t.Helper()
	reg := stage.NewStaticRegistry()
	m := mode
	require.NoError(t, reg.Register("a", &chainStage{mode: &m}))
	require.NoError(t, reg.Register("b", &chainStage{upstream: "a", mode: &m}))
	require.NoError(t, reg.Register("c", &chainStage{upstream: "b", mode: &m}))
	return reg
}

func nestedConfig(dir string, stages []string, extra map[string]any) map[string]any {
	cfg := map[string]any{
		"working_directory": dir,
		"stages":            toAny(stages),
	}
	for k, v := range extra {
		cfg[k] = v
	}
	return cfg
}

func toAny(stages []string) []any {
	out := make([]any, len(stages))
	for i, s := range stages {
		out[i] = s
	}
	return out
}

func TestEngine_FreshRunExecutesFullLinearChain(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	eng := &Engine{Registry: newLinearRegistry(t, "v1")}
	result, err := eng.Run(nestedConfig(dir, []string{"c"}, map[string]any{"mode": "v1"}))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b", "c"}, result.Executed)
	require.Empty(t, result.Skipped)
}

func TestEngine_CleanRerunReexecutesOnlyRequested(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	eng := &Engine{Registry: newLinearRegistry(t, "v1")}
	cfg := nestedConfig(dir, []string{"c"}, map[string]any{"mode": "v1"})

	_, err := eng.Run(cfg)
	require.NoError(t, err)

	result, err := eng.Run(cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, result.Executed)
	require.ElementsMatch(t, []string{"a", "b"}, result.Skipped)
}

func TestEngine_ConfigChangeDeepInChainReexecutesDownstream(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	eng := &Engine{Registry: newLinearRegistry(t, "v1")}
	_, err := eng.Run(nestedConfig(dir, []string{"c"}, map[string]any{"mode": "v1"}))
	require.NoError(t, err)

	eng2 := &Engine{Registry: newLinearRegistry(t, "v1")}
	result, err := eng2.Run(nestedConfig(dir, []string{"c"}, map[string]any{"mode": "v2"}))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b", "c"}, result.Executed)
}

func TestEngine_DefaultConflictAcrossStagesFails(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	reg := stage.NewStaticRegistry()
	vA := configval.Value("a-default")
	vB := configval.Value("b-default")
	require.NoError(t, reg.Register("a", &chainStage{mode: &vA}))
	require.NoError(t, reg.Register("b", &chainStage{mode: &vB}))

	eng := &Engine{Registry: reg}
	_, err := eng.Run(nestedConfig(dir, []string{"a", "b"}, nil))
	require.Error(t, err)
	var want *stagekiterrors.DefaultValueConflictError
	require.ErrorAs(t, err, &want)
}

func TestEngine_CycleDetectionFails(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	reg := stage.NewStaticRegistry()
	mode := configval.Value("v1")
	require.NoError(t, reg.Register("a", &chainStage{upstream: "b", mode: &mode}))
	require.NoError(t, reg.Register("b", &chainStage{upstream: "a", mode: &mode}))

	eng := &Engine{Registry: reg}
	_, err := eng.Run(nestedConfig(dir, []string{"a"}, map[string]any{"mode": "v1"}))
	require.Error(t, err)
	var want *stagekiterrors.CircularDependencyError
	require.ErrorAs(t, err, &want)
}

func TestEngine_RequestedStageAlwaysReexecutesEvenIfUnchanged(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	eng := &Engine{Registry: newLinearRegistry(t, "v1")}
	cfg := nestedConfig(dir, []string{"a"}, map[string]any{"mode": "v1"})

	_, err := eng.Run(cfg)
	require.NoError(t, err)

	result, err := eng.Run(cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, result.Executed)
}
