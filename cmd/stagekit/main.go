// Command stagekit is the CLI entry point for the stage-orchestration
// engine. It doubles as the Progress Service subprocess: when invoked with
// the hidden __progress-server subcommand it serves the progress-report
// protocol on the port it is given.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
