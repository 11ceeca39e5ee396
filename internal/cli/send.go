package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"eventease/internal/app"
	"eventease/internal/dispatch"
)

// NewSendCommand creates the send command.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	var eventID string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send pending invitations of an event",
		Long: `Send every invitation of the event that has not been delivered yet.
Run it again to retry the failures of an earlier run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openApp(cmd.Context(), app.Options{SkipSessions: true})
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Dispatcher.SendPending(cmd.Context(), eventID)
			if err != nil {
				return err
			}
			if err := printReport(rootOpts, cmd, report); err != nil {
				return err
			}
			if report.FailureCount > 0 {
				return errors.New("some invitations were not delivered")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func printReport(opts *RootOptions, cmd *cobra.Command, r dispatch.Report) error {
	out := cmd.OutOrStdout()
	if opts.Format == FormatJSON {
		return opts.writeJSON(out, r)
	}
	if r.NothingToDo {
		_, err := fmt.Fprintf(out, "event %s: nothing to send\n", r.EventID)
		return err
	}
	fmt.Fprintf(out, "event %s: attempted %d, sent %d, failed %d\n", r.EventID, r.Attempted, r.SuccessCount, r.FailureCount)
	for _, f := range r.Failures {
		fmt.Fprintf(out, "  %s <%s>: %s\n", f.InvitationID, f.GuestEmail, f.Cause)
	}
	return nil
}
