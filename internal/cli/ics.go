package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"eventease/internal/app"
	"eventease/internal/ics"
	"eventease/internal/storage"
)

// NewICSCommand creates the ics command.
func NewICSCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		eventID      string
		invitationID string
		outPath      string
		inspect      bool
	)

	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Render the calendar invitation of one guest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rootOpts.openApp(ctx, app.Options{SkipSessions: true})
			if err != nil {
				return err
			}
			defer a.Close()

			ev, err := a.Store.GetEvent(ctx, eventID)
			if err != nil {
				return fmt.Errorf("event %s: %w", eventID, err)
			}
			inv, err := a.Store.GetInvitation(ctx, invitationID)
			if err != nil {
				return fmt.Errorf("invitation %s: %w", invitationID, err)
			}
			if inv.EventID != ev.ID {
				return fmt.Errorf("invitation %s belongs to another event: %w", invitationID, storage.ErrNotFound)
			}

			data, err := a.Calendar.Generate(ev, inv)
			if err != nil {
				return err
			}

			if inspect {
				parsed, err := ics.ParseICS(data)
				if err != nil {
					return err
				}
				if rootOpts.Format == FormatJSON {
					return rootOpts.writeJSON(cmd.OutOrStdout(), parsed)
				}
				for _, p := range parsed {
					fmt.Fprintf(cmd.OutOrStdout(), "uid:       %s\nmethod:    %s\nsummary:   %s\nstart:     %s\nend:       %s\nlocation:  %s\norganizer: %s\nattendees: %v\n",
						p.UID, p.Method, p.Summary, p.Start.Format("2006-01-02 15:04 MST"), p.End.Format("2006-01-02 15:04 MST"),
						p.Location, p.Organizer, p.Attendees)
					if p.RawRRule != "" {
						fmt.Fprintf(cmd.OutOrStdout(), "rrule:     %s\n", p.RawRRule)
					}
				}
				return nil
			}

			if outPath != "" {
				return os.WriteFile(outPath, data, 0o644)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	cmd.Flags().StringVar(&invitationID, "invitation", "", "invitation id")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write the calendar to this file instead of stdout")
	cmd.Flags().BoolVar(&inspect, "inspect", false, "print the parsed calendar instead of raw ICS")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("invitation")
	return cmd
}
