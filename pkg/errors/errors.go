// Package errors defines the engine-visible error kinds stagekit can raise.
// Each kind is a distinct struct type so callers can discriminate with
// errors.As instead of matching on error strings.
package errors

import (
	"fmt"
	"sort"
	"strings"
)

// MissingWorkspaceError is raised when the top-level config lacks working_directory.
type MissingWorkspaceError struct{}

func (e *MissingWorkspaceError) Error() string {
	return "config missing required \"working_directory\" key"
}

// MissingStagesListError is raised when the top-level config lacks stages.
type MissingStagesListError struct{}

func (e *MissingStagesListError) Error() string {
	return "config missing required \"stages\" key"
}

// InvalidConfigKeyError is raised when a nested config key contains a dot.
type InvalidConfigKeyError struct {
	Key string
}

func (e *InvalidConfigKeyError) Error() string {
	return fmt.Sprintf("invalid config key %q: keys must not contain \".\"", e.Key)
}

// InvalidConfigValueTypeError is raised when a config leaf is not a scalar.
type InvalidConfigValueTypeError struct {
	Path string
}

func (e *InvalidConfigValueTypeError) Error() string {
	return fmt.Sprintf("config value at %q is not a scalar (string, int, float, or bool)", e.Path)
}

// MissingConfigKeyError is raised when a required key has no value and no default.
type MissingConfigKeyError struct {
	Key    string
	Stages []string
}

func (e *MissingConfigKeyError) Error() string {
	return fmt.Sprintf("missing required config key %q (declared by: %s)", e.Key, strings.Join(e.Stages, ", "))
}

// DefaultConflict describes one key with conflicting non-null defaults.
type DefaultConflict struct {
	Key      string
	Defaults map[string]any // stage name -> default value
}

// DefaultValueConflictError is raised when two stages declare different
// non-null defaults for the same config key.
type DefaultValueConflictError struct {
	Conflicts []DefaultConflict
}

func (e *DefaultValueConflictError) Error() string {
	var b strings.Builder
	b.WriteString("conflicting default values:")
	for _, c := range e.Conflicts {
		b.WriteString(fmt.Sprintf("\n  %s:", c.Key))
		names := make([]string, 0, len(c.Defaults))
		for name := range c.Defaults {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.WriteString(fmt.Sprintf(" %s=%v", name, c.Defaults[name]))
		}
	}
	return b.String()
}

// CircularDependencyError is raised when topological flattening cannot make progress.
type CircularDependencyError struct {
	Remaining []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected among stages: %s", strings.Join(e.Remaining, ", "))
}

// UnrequestedStageAccessError is raised when a stage queries a stage or cache
// path it did not declare during Configure.
type UnrequestedStageAccessError struct {
	Stage    string
	Accessed string
}

func (e *UnrequestedStageAccessError) Error() string {
	return fmt.Sprintf("stage %q accessed %q without declaring it as an upstream in Configure", e.Stage, e.Accessed)
}

// NoExecutorError is raised when a stage reaches the execute phase but defines no Execute hook.
type NoExecutorError struct {
	Stage string
}

func (e *NoExecutorError) Error() string {
	return fmt.Sprintf("stage %q has no Execute hook", e.Stage)
}

// WorkspaceNotDirectoryError is raised when a stage-internal output path exists but is not a directory.
type WorkspaceNotDirectoryError struct {
	Path string
}

func (e *WorkspaceNotDirectoryError) Error() string {
	return fmt.Sprintf("path %q exists and is not a directory", e.Path)
}

// StageFailureError wraps any error returned by a stage's Execute hook.
type StageFailureError struct {
	Stage string
	Err   error
}

func (e *StageFailureError) Error() string {
	return fmt.Sprintf("stage %q failed: %v", e.Stage, e.Err)
}

func (e *StageFailureError) Unwrap() error {
	return e.Err
}
