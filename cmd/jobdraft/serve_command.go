package main

import (
	"github.com/spf13/cobra"

	"jobdraft/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the jobdraft daemon and HTTP API",
		Long: "Serve holds the instance lock, recovers drafts interrupted by a previous run,\n" +
			"and serves the HTTP API until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel: ctx.logLevel(cfg.Logging.Level),
				Bind:     bind,
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides paths.api_bind)")
	return cmd
}
