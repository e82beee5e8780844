package main

import (
	"github.com/spf13/cobra"

	"github.com/jamestexas/apex-log-parsin/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the parser over HTTP",
		Long: `Serve the parser over HTTP.

Routes:
  POST /api/parse?filename=NAME   body is one debug log, returns its parse result
  POST /api/split?filename=NAME   body is concatenated logs, returns one result per log
  GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			srv := server.New(a.cfg.Parser(), a.cfg.Server.Addr, a.cfg.Server.MaxBodyMb, a.log)
			return srv.Run(ctx)
		},
	}
	flags := cmd.Flags()
	flags.String("addr", a.cfg.Server.Addr, "listen address")
	flags.Int("max-body-mb", a.cfg.Server.MaxBodyMb, "largest accepted request body in megabytes")
	a.bind(flags.Lookup("addr"), "server.addr")
	a.bind(flags.Lookup("max-body-mb"), "server.max_body_mb")
	return cmd
}
