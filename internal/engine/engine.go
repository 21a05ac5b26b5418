// Package engine wires together the Config Flattener, Stage Registry &
// Resolver, DAG Scheduler, Staleness Analyzer, and Executor into the single
// entry point the CLI (or any other caller) drives a run through.
package engine

import (
	"fmt"

	"github.com/stagekit-dev/stagekit/internal/configval"
	"github.com/stagekit-dev/stagekit/internal/dag"
	"github.com/stagekit-dev/stagekit/internal/executor"
	"github.com/stagekit-dev/stagekit/internal/logging"
	"github.com/stagekit-dev/stagekit/internal/resolver"
	"github.com/stagekit-dev/stagekit/internal/staleness"
	"github.com/stagekit-dev/stagekit/internal/stage"
)

// Engine ties the five components together for one run.
type Engine struct {
	Registry stage.Registry
	Logger   *logging.Logger
	Progress *ProgressService // nil disables out-of-process progress reporting
	Codec    executor.Codec
}

// Plan is the outcome of flattening, resolving, and scheduling — everything
// needed before staleness analysis and execution begin.
type Plan struct {
	Workdir  string
	Order    []string
	Resolved *resolver.Result
	Flat     configval.FlatConfig
}

// Prepare runs the Config Flattener, Resolver, and Scheduler: everything
// that must succeed before any stage executes.
func (e *Engine) Prepare(nestedConfig map[string]any) (*Plan, error) {
	top, err := configval.Flatten(nestedConfig)
	if err != nil {
		return nil, err
	}

	resolved, err := resolver.Resolve(e.Registry, top.Stages, top.Flat)
	if err != nil {
		return nil, err
	}

	upstreams := make(map[string][]string, len(resolved.Stages))
	for name, rs := range resolved.Stages {
		upstreams[name] = rs.Upstreams
	}
	order, err := dag.New(upstreams).TopologicalOrder()
	if err != nil {
		return nil, err
	}

	return &Plan{
		Workdir:  top.WorkingDirectory,
		Order:    order,
		Resolved: resolved,
		Flat:     top.Flat,
	}, nil
}

// Run executes a complete engine cycle: Prepare, analyze staleness, then
// execute every stale stage in order.
func (e *Engine) Run(nestedConfig map[string]any) (*executor.RunResult, error) {
	plan, err := e.Prepare(nestedConfig)
	if err != nil {
		return nil, err
	}

	analysis, err := staleness.Analyze(plan.Workdir, plan.Order, plan.Resolved, plan.Flat)
	if err != nil {
		return nil, err
	}

	var client *progressClientHandle
	if e.Progress != nil {
		client, err = e.Progress.start()
		if err != nil {
			return nil, fmt.Errorf("start progress service: %w", err)
		}
		defer client.stop()
	}

	deps := executor.Deps{
		Codec:  e.Codec,
		Logger: e.Logger,
	}
	if client != nil {
		deps.ProgressClient = client.client
	}

	return executor.Run(plan.Workdir, plan.Order, plan.Resolved, analysis, plan.Flat, deps)
}
