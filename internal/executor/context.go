package executor

import (
	"time"

	"github.com/google/uuid"

	"github.com/stagekit-dev/stagekit/internal/configval"
	"github.com/stagekit-dev/stagekit/internal/progress"
	"github.com/stagekit-dev/stagekit/internal/workspace"
	stagekiterrors "github.com/stagekit-dev/stagekit/pkg/errors"
)

// execContext is the stage.ExecContext implementation the executor builds
// for each stage's Execute call.
type execContext struct {
	stage          string
	workdir        string
	filteredConfig configval.FlatConfig
	upstreams      map[string]bool
	progressClient *progress.Client
}

func (c *execContext) Config(key string) (configval.Value, bool) {
	v, ok := c.filteredConfig[key]
	return v, ok
}

func (c *execContext) Stage(name string) ([]byte, error) {
	if !c.upstreams[name] {
		return nil, &stagekiterrors.UnrequestedStageAccessError{Stage: c.stage, Accessed: name}
	}
	return workspace.ReadResult(c.workdir, name)
}

func (c *execContext) CachePath(name string) (string, error) {
	if name == "" {
		return workspace.CacheDir(c.workdir, c.stage), nil
	}
	if !c.upstreams[name] {
		return "", &stagekiterrors.UnrequestedStageAccessError{Stage: c.stage, Accessed: name}
	}
	return workspace.CacheDir(c.workdir, name), nil
}

func (c *execContext) Progress(desc string, total *int, interval time.Duration) (progress.Handle, error) {
	if c.progressClient == nil {
		return noopHandle{}, nil
	}
	var totalPtr *int64
	if total != nil {
		t := int64(*total)
		totalPtr = &t
	}
	var intervalPtr *float64
	if interval > 0 {
		secs := interval.Seconds()
		intervalPtr = &secs
	}
	id := uuid.NewString()
	return progress.NewHandle(c.progressClient, id, desc, totalPtr, intervalPtr)
}

// noopHandle is returned when no Progress Service is attached (e.g. tests
// exercising the executor in isolation).
type noopHandle struct{}

func (noopHandle) Update(int64) error        { return nil }
func (noopHandle) Parallel() progress.Handle { return noopHandle{} }
func (noopHandle) Close() error              { return nil }
