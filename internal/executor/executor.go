// Package executor runs every stale stage sequentially in topological
// order, persisting result artifacts, cache directories, and sidecar
// metadata records as each stage completes.
package executor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/stagekit-dev/stagekit/internal/configval"
	"github.com/stagekit-dev/stagekit/internal/logging"
	"github.com/stagekit-dev/stagekit/internal/progress"
	"github.com/stagekit-dev/stagekit/internal/resolver"
	"github.com/stagekit-dev/stagekit/internal/staleness"
	"github.com/stagekit-dev/stagekit/internal/stage"
	"github.com/stagekit-dev/stagekit/internal/workspace"
	stagekiterrors "github.com/stagekit-dev/stagekit/pkg/errors"
)

// Deps bundles the executor's collaborators.
type Deps struct {
	Codec          Codec
	ProgressClient *progress.Client // nil disables progress reporting
	Logger         *logging.Logger
}

// RunResult reports what actually executed.
type RunResult struct {
	Executed []string
	Skipped  []string
}

// Run executes every stale stage from analysis, in the order given (which
// must be a valid topological order of resolved.Stages), and leaves
// analysis.CurrentUUIDs fully populated on success.
func Run(workdir string, order []string, resolved *resolver.Result, analysis *staleness.Result, userConfig configval.FlatConfig, deps Deps) (*RunResult, error) {
	if deps.Codec == nil {
		deps.Codec = JSONCodec{}
	}

	result := &RunResult{}

	for _, name := range order {
		if !analysis.Stale[name] {
			result.Skipped = append(result.Skipped, name)
			continue
		}

		rs := resolved.Stages[name]
		if err := runStage(workdir, rs, analysis, userConfig, deps); err != nil {
			return result, err
		}
		result.Executed = append(result.Executed, name)
	}

	return result, nil
}

func runStage(workdir string, rs *resolver.ResolvedStage, analysis *staleness.Result, userConfig configval.FlatConfig, deps Deps) error {
	name := rs.Name
	if deps.Logger != nil {
		deps.Logger.Info("executing stage", "stage", name)
	}

	if err := workspace.ResetCache(workdir, name); err != nil {
		return err
	}

	execHook, ok := rs.Module.(stage.Executor)
	if !ok {
		return &stagekiterrors.NoExecutorError{Stage: name}
	}

	ctx := &execContext{
		stage:          name,
		workdir:        workdir,
		filteredConfig: rs.FilteredConfig(userConfig),
		upstreams:      rs.UpstreamSet(),
		progressClient: deps.ProgressClient,
	}

	value, err := execHook.Execute(ctx)
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.Error(err, "stage execution failed", "stage", name)
		}
		return &stagekiterrors.StageFailureError{Stage: name, Err: err}
	}

	data, err := deps.Codec.Encode(value)
	if err != nil {
		return fmt.Errorf("encode result for stage %q: %w", name, err)
	}
	if err := workspace.WriteResult(workdir, name, data); err != nil {
		return err
	}

	runUUID := uuid.NewString()
	analysis.CurrentUUIDs[name] = runUUID

	expected := make(map[string]string, len(rs.Upstreams))
	for _, up := range rs.Upstreams {
		expected[up] = analysis.CurrentUUIDs[up]
	}

	report := analysis.Reports[name]
	sidecar := &workspace.Sidecar{
		UUID:              runUUID,
		ExpectedUUIDs:     expected,
		VerificationToken: report.Token,
		Config:            report.FilteredConfig,
	}
	if err := workspace.WriteSidecar(workdir, name, sidecar); err != nil {
		return err
	}

	return nil
}
