// Package cliconfig loads the YAML run file the CLI is pointed at and
// validates the options that come off the command line.
package cliconfig

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RunOptions are the CLI-level inputs to a single engine run.
type RunOptions struct {
	ConfigPath   string   `validate:"required"`
	Stages       []string `validate:"omitempty,dive,required"`
	ProgressAddr string   `validate:"omitempty,hostname_port"`
	LogLevel     string   `validate:"omitempty,oneof=debug info warn error"`
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})
	return validateInst
}

// Validate checks RunOptions against its struct tags.
func Validate(opts RunOptions) error {
	if err := validatorInstance().Struct(opts); err != nil {
		return fmt.Errorf("invalid run options: %w", err)
	}
	return nil
}

// LoadNested reads a YAML document at path into a generic nested map, the
// shape the Config Flattener expects as input.
func LoadNested(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var nested map[string]any
	if err := yaml.Unmarshal(data, &nested); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return nested, nil
}
