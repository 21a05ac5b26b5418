package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stagekit-dev/stagekit/examples/stages"
	"github.com/stagekit-dev/stagekit/internal/cliconfig"
	"github.com/stagekit-dev/stagekit/internal/engine"
	"github.com/stagekit-dev/stagekit/internal/executor"
	"github.com/stagekit-dev/stagekit/internal/logging"
	"github.com/stagekit-dev/stagekit/internal/stage"
)

func newRunCmd(root *rootFlags) *cobra.Command {
	var configPath string
	var stageOverride []string
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the stages requested by a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := "info"
			if root.verbose {
				level = "debug"
			}

			opts := cliconfig.RunOptions{
				ConfigPath: configPath,
				Stages:     stageOverride,
				LogLevel:   level,
			}
			if err := cliconfig.Validate(opts); err != nil {
				return err
			}

			return runEngine(opts, noProgress)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the run's YAML config file")
	cmd.Flags().StringSliceVar(&stageOverride, "stages", nil, "Override the config file's requested stage list")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the out-of-process progress reporter")
	cmd.MarkFlagRequired("config") //nolint:errcheck

	return cmd
}

func runEngine(opts cliconfig.RunOptions, noProgress bool) error {
	log := logging.New(logging.Options{Level: opts.LogLevel, Component: "engine"})

	nested, err := cliconfig.LoadNested(opts.ConfigPath)
	if err != nil {
		return err
	}
	if len(opts.Stages) > 0 {
		stageList := make([]any, len(opts.Stages))
		for i, s := range opts.Stages {
			stageList[i] = s
		}
		nested["stages"] = stageList
	}

	reg := stage.NewStaticRegistry()
	if err := stages.RegisterDemo(reg); err != nil {
		return fmt.Errorf("register stages: %w", err)
	}

	eng := &engine.Engine{
		Registry: reg,
		Logger:   log,
		Codec:    executor.JSONCodec{},
	}
	if !noProgress {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve executable path: %w", err)
		}
		eng.Progress = &engine.ProgressService{
			Executable: exe,
			Args:       []string{"__progress-server"},
			Output:     os.Stdout,
		}
	}

	result, err := eng.Run(nested)
	if err != nil {
		return err
	}

	log.Info("run complete", "executed", result.Executed, "skipped", result.Skipped)
	return nil
}
