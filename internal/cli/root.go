// Package cli implements the eventease command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"eventease/internal/app"
	"eventease/internal/config"
	appLog "eventease/internal/log"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// RootOptions holds flags shared by every command.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Format     string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "eventease",
		Short: "EventEase event planning service",
		Long: `EventEase assembles events from an event type, a vendor and a venue,
then emails each guest an iCalendar invitation.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != FormatText && opts.Format != FormatJSON {
				return fmt.Errorf("invalid format %q: must be text or json", opts.Format)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "/etc/eventease/config.yaml", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSendCommand(opts))
	cmd.AddCommand(NewICSCommand(opts))
	cmd.AddCommand(NewProviderCommand(opts))

	return cmd
}

// loadConfig reads the config file and applies the log level.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", o.ConfigPath, err)
	}
	level := cfg.LogLevel
	if o.LogLevel != "" {
		level = o.LogLevel
	}
	appLog.SetLevel(appLog.ParseLevel(level))
	return cfg, nil
}

// openApp loads config and wires the application.
func (o *RootOptions) openApp(ctx context.Context, appOpts app.Options) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, appOpts)
}

func (o *RootOptions) writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
