// Package configval implements the configuration data model shared across
// stagekit: the scalar Value type, the flat dotted-key configuration, and
// the breadth-first flattener that turns a nested map[string]any into one.
package configval

import (
	"fmt"

	stagekiterrors "github.com/stagekit-dev/stagekit/pkg/errors"
)

// Value is a legal configuration leaf: string, int64, float64, or bool.
type Value any

// FlatConfig is an unordered mapping from dotted-key strings to Values.
type FlatConfig map[string]Value

// TopLevel holds the two pre-engine keys stripped from user config before flattening.
type TopLevel struct {
	WorkingDirectory string
	Stages           []string
	Flat             FlatConfig
}

// IsScalar reports whether v is one of the legal configuration leaf types.
func IsScalar(v any) bool {
	switch v.(type) {
	case string, bool:
		return true
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case float32, float64:
		return true
	}
	return false
}

// Normalize coerces a raw scalar into the engine's canonical numeric widths
// (int64 / float64) so equality comparisons in staleness detection are stable
// regardless of the numeric type the caller supplied.
func Normalize(v any) Value {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	case float32:
		return float64(t)
	case float64:
		return t
	default:
		return v
	}
}

// Flatten walks a nested map[string]any breadth-first, stripping the two
// pre-engine keys (working_directory, stages) and binding every remaining
// leaf to its dotted path. Keys containing "." or non-scalar leaves fail.
func Flatten(nested map[string]any) (*TopLevel, error) {
	top := &TopLevel{Flat: FlatConfig{}}

	rest := make(map[string]any, len(nested))
	for k, v := range nested {
		switch k {
		case "working_directory":
			s, ok := v.(string)
			if !ok {
				return nil, &stagekiterrors.InvalidConfigValueTypeError{Path: "working_directory"}
			}
			top.WorkingDirectory = s
		case "stages":
			list, err := toStringList(v)
			if err != nil {
				return nil, err
			}
			top.Stages = list
		default:
			rest[k] = v
		}
	}

	if top.WorkingDirectory == "" {
		return nil, &stagekiterrors.MissingWorkspaceError{}
	}
	if top.Stages == nil {
		return nil, &stagekiterrors.MissingStagesListError{}
	}

	type frame struct {
		prefix string
		node   map[string]any
	}
	queue := []frame{{prefix: "", node: rest}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for key, val := range cur.node {
			if key == "" {
				continue
			}
			for _, r := range key {
				if r == '.' {
					return nil, &stagekiterrors.InvalidConfigKeyError{Key: key}
				}
			}

			path := key
			if cur.prefix != "" {
				path = cur.prefix + "." + key
			}

			switch typed := val.(type) {
			case map[string]any:
				queue = append(queue, frame{prefix: path, node: typed})
			default:
				if !IsScalar(val) {
					return nil, &stagekiterrors.InvalidConfigValueTypeError{Path: path}
				}
				top.Flat[path] = Normalize(val)
			}
		}
	}

	return top, nil
}

func toStringList(v any) ([]string, error) {
	list, ok := v.([]any)
	if !ok {
		if strs, ok := v.([]string); ok {
			return strs, nil
		}
		return nil, fmt.Errorf("\"stages\" must be a list of strings")
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("\"stages\" must be a list of strings")
		}
		out = append(out, s)
	}
	return out, nil
}
