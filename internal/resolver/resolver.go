// Package resolver implements stage discovery: given a requested set of
// stage names, it transitively loads every reachable upstream stage, calls
// each one's Configure hook, and merges their declared config requirements,
// rejecting conflicting defaults and reporting missing keys.
package resolver

import (
	"sort"

	"github.com/stagekit-dev/stagekit/internal/configval"
	"github.com/stagekit-dev/stagekit/internal/stage"
	stagekiterrors "github.com/stagekit-dev/stagekit/pkg/errors"
)

// ResolvedStage is one discovered stage and its merged requirements.
type ResolvedStage struct {
	Name      string
	Module    stage.Module
	Keys      map[string]*configval.Value // per-stage required keys, with defaults
	Upstreams []string
}

// Result is the full closure of stages reachable from the requested set.
type Result struct {
	Requested []string
	Order     []string // discovery order, not topological order
	Stages    map[string]*ResolvedStage
}

// FilteredConfig returns the config values this stage declared, using the
// user-supplied value when present and falling back to the stage's default
// otherwise. Resolve guarantees every key is resolvable by this point.
func (rs *ResolvedStage) FilteredConfig(userConfig configval.FlatConfig) configval.FlatConfig {
	out := make(configval.FlatConfig, len(rs.Keys))
	for key, def := range rs.Keys {
		if v, ok := userConfig[key]; ok {
			out[key] = v
			continue
		}
		if def != nil {
			out[key] = *def
		}
	}
	return out
}

// UpstreamSet returns rs.Upstreams as a lookup set.
func (rs *ResolvedStage) UpstreamSet() map[string]bool {
	set := make(map[string]bool, len(rs.Upstreams))
	for _, up := range rs.Upstreams {
		set[up] = true
	}
	return set
}

// Resolve discovers the closure of stages reachable from requested via
// declared upstream names, rejects conflicting defaults, and checks that
// every required key has either a user-supplied value or a default.
// Defaults are applied later, by FilteredConfig.
func Resolve(registry stage.Registry, requested []string, userConfig configval.FlatConfig) (*Result, error) {
	result := &Result{
		Requested: requested,
		Stages:    make(map[string]*ResolvedStage),
	}

	queue := append([]string(nil), requested...)
	seen := make(map[string]bool)

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		result.Order = append(result.Order, name)

		mod, err := registry.Load(name)
		if err != nil {
			return nil, err
		}

		require, req := stage.NewRequireCollector()
		if configurer, ok := mod.(stage.Configurer); ok {
			configurer.Configure(require)
		}

		result.Stages[name] = &ResolvedStage{
			Name:      name,
			Module:    mod,
			Keys:      req.Keys,
			Upstreams: req.Upstreams,
		}

		for _, up := range req.Upstreams {
			if !seen[up] {
				queue = append(queue, up)
			}
		}
	}

	if err := checkDefaultConflicts(result); err != nil {
		return nil, err
	}
	if err := fillAndCheckMissingKeys(result, userConfig); err != nil {
		return nil, err
	}

	return result, nil
}

func checkDefaultConflicts(result *Result) error {
	// key -> stage name -> default value (only non-nil defaults tracked)
	byKey := make(map[string]map[string]any)
	names := sortedStageNames(result)

	for _, name := range names {
		rs := result.Stages[name]
		keys := sortedKeyNames(rs.Keys)
		for _, key := range keys {
			def := rs.Keys[key]
			if def == nil {
				continue
			}
			if byKey[key] == nil {
				byKey[key] = make(map[string]any)
			}
			byKey[key][name] = *def
		}
	}

	var conflicts []stagekiterrors.DefaultConflict
	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		defaults := byKey[key]
		distinct := make(map[any]bool)
		for _, v := range defaults {
			distinct[v] = true
		}
		if len(distinct) > 1 {
			conflicts = append(conflicts, stagekiterrors.DefaultConflict{Key: key, Defaults: defaults})
		}
	}

	if len(conflicts) > 0 {
		return &stagekiterrors.DefaultValueConflictError{Conflicts: conflicts}
	}
	return nil
}

func fillAndCheckMissingKeys(result *Result, userConfig configval.FlatConfig) error {
	names := sortedStageNames(result)
	for _, name := range names {
		rs := result.Stages[name]
		keys := sortedKeyNames(rs.Keys)
		for _, key := range keys {
			if _, ok := userConfig[key]; ok {
				continue
			}
			def := rs.Keys[key]
			if def != nil {
				continue
			}
			declaredBy := declaringStages(result, key)
			return &stagekiterrors.MissingConfigKeyError{Key: key, Stages: declaredBy}
		}
	}
	return nil
}

func declaringStages(result *Result, key string) []string {
	var names []string
	for _, name := range sortedStageNames(result) {
		if _, ok := result.Stages[name].Keys[key]; ok {
			names = append(names, name)
		}
	}
	return names
}

func sortedStageNames(result *Result) []string {
	names := make([]string, 0, len(result.Stages))
	for name := range result.Stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedKeyNames(keys map[string]*configval.Value) []string {
	names := make([]string, 0, len(keys))
	for name := range keys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
