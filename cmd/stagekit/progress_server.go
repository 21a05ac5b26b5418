package main

import (
	"fmt"
	"net"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/stagekit-dev/stagekit/internal/progress"
)

// newProgressServerCmd wires the hidden __progress-server subcommand: the
// stagekit binary re-execs itself with this subcommand to host the
// out-of-process Progress Service. The parent picks the port before
// spawning and passes it down, so the child never has to advertise one.
func newProgressServerCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:    "__progress-server",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
			if err != nil {
				return fmt.Errorf("listen on port %d: %w", port, err)
			}

			log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "progress-server").Logger()
			srv := progress.NewServer(listener, os.Stdout, log)
			return srv.Serve()
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "TCP port to listen on")
	cmd.MarkFlagRequired("port") //nolint:errcheck

	return cmd
}
