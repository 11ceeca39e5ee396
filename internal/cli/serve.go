package cli

import (
	"github.com/spf13/cobra"

	"eventease/internal/app"
	appLog "eventease/internal/log"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			appLog.Info("effective config",
				"listen", cfg.Listen,
				"timezone", cfg.Timezone,
				"storage", cfg.Storage.Driver,
				"sessions", cfg.Sessions.Backend,
				"workers", cfg.Dispatch.Workers,
				"send_timeout_seconds", cfg.Dispatch.SendTimeoutSeconds,
			)

			a, err := app.New(ctx, cfg, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.Run(ctx)
			appLog.Info("eventease exiting")
			return err
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}
