package main

import (
	"github.com/spf13/cobra"

	"github.com/iota-uz/opsdesk/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the workflow HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := opts.config()
			if err != nil {
				return err
			}
			conf.Logger().Infof("listening on %s", conf.SocketAddress)
			return server.Serve(cmd.Context(), conf)
		},
	}
}
