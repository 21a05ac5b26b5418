// Package staleness implements the multi-signal staleness analysis that
// decides which stages must re-run: per-stage verification tokens, sidecar
// validity, the individual staleness tests, and transitive propagation
// through the DAG.
package staleness

import (
	"github.com/stagekit-dev/stagekit/internal/configval"
	"github.com/stagekit-dev/stagekit/internal/resolver"
	"github.com/stagekit-dev/stagekit/internal/stage"
	"github.com/stagekit-dev/stagekit/internal/workspace"
)

// Report is the outcome of analysis for one stage.
type Report struct {
	Stage          string
	Token          *string
	Sidecar        *workspace.Sidecar
	SidecarValid   bool
	Stale          bool
	FilteredConfig configval.FlatConfig
}

// Result is the full analysis across every resolved stage.
type Result struct {
	Stale   map[string]bool
	Reports map[string]*Report
	// CurrentUUIDs is filled in as stages are analyzed: stale stages have no
	// entry here (the executor adds a fresh uuid after a successful run);
	// non-stale stages carry forward their sidecar's prior uuid.
	CurrentUUIDs map[string]string
}

// Analyze runs the per-stage staleness tests and then propagates staleness
// transitively, visiting stages in the given topological order.
func Analyze(workdir string, order []string, resolved *resolver.Result, userConfig configval.FlatConfig) (*Result, error) {
	requested := make(map[string]bool, len(resolved.Requested))
	for _, r := range resolved.Requested {
		requested[r] = true
	}

	result := &Result{
		Stale:        make(map[string]bool),
		Reports:      make(map[string]*Report),
		CurrentUUIDs: make(map[string]string),
	}

	// Steps 1-3: per-stage tests, in topological order (upstream state must
	// exist before a downstream stage's expected_uuids comparisons in step 4).
	for _, name := range order {
		rs := resolved.Stages[name]
		filtered := rs.FilteredConfig(userConfig)

		var token *string
		if verifier, ok := rs.Module.(stage.Verifier); ok {
			t, err := verifier.Verify(configContext{filtered})
			if err != nil {
				return nil, err
			}
			token = t
		}

		sidecar, valid := workspace.LoadSidecar(workdir, name)
		isRequested := requested[name]

		report := &Report{
			Stage:          name,
			Token:          token,
			Sidecar:        sidecar,
			SidecarValid:   valid,
			FilteredConfig: filtered,
		}

		stale := isRequested
		if !isRequested {
			if !valid {
				stale = true
			}
			if !workspace.ResultExists(workdir, name) {
				stale = true
			}
			if !workspace.CacheExists(workdir, name) {
				stale = true
			}
			if valid && !tokensEqual(sidecar.VerificationToken, token) {
				stale = true
			}
		}
		if valid && !configMatches(sidecar.Config, filtered) {
			stale = true
		}

		report.Stale = stale
		result.Reports[name] = report
		if stale {
			result.Stale[name] = true
		} else if valid {
			result.CurrentUUIDs[name] = sidecar.UUID
		}
	}

	// Step 4: transitive propagation.
	changed := true
	for changed {
		changed = false
		for _, name := range order {
			if result.Stale[name] {
				continue
			}
			rs := resolved.Stages[name]
			for _, up := range rs.Upstreams {
				if result.Stale[up] || requested[up] {
					result.Stale[name] = true
					delete(result.CurrentUUIDs, name)
					changed = true
					break
				}
				report := result.Reports[name]
				if report.SidecarValid {
					// An upstream the sidecar never recorded counts as a
					// mismatch: the stage ran before that upstream existed.
					expected, ok := report.Sidecar.ExpectedUUIDs[up]
					if !ok || expected != result.CurrentUUIDs[up] {
						result.Stale[name] = true
						delete(result.CurrentUUIDs, name)
						changed = true
						break
					}
				}
			}
		}
	}

	return result, nil
}

func tokensEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func configMatches(stored, current configval.FlatConfig) bool {
	if len(stored) != len(current) {
		return false
	}
	for k, v := range current {
		sv, ok := stored[k]
		if !ok {
			return false
		}
		if sv == v {
			continue
		}
		// Numbers read back from a JSON sidecar are float64; compare by value.
		sf, storedIsFloat := sv.(float64)
		switch n := configval.Normalize(v).(type) {
		case int64:
			if storedIsFloat && sf == float64(n) {
				continue
			}
		case float64:
			if storedIsFloat && sf == n {
				continue
			}
		}
		return false
	}
	return true
}

type configContext struct {
	flat configval.FlatConfig
}

func (c configContext) Config(key string) (configval.Value, bool) {
	v, ok := c.flat[key]
	return v, ok
}
