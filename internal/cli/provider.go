package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"eventease/internal/app"
	"eventease/internal/model"
)

// NewProviderCommand creates the provider command group.
func NewProviderCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provider",
		Short: "Manage the vendor and venue directory",
	}
	cmd.AddCommand(newProviderAddCommand(rootOpts))
	cmd.AddCommand(newProviderListCommand(rootOpts))
	return cmd
}

func newProviderAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		p    model.Provider
		role string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register or update a provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Ref = model.NormalizeEmail(p.Ref)
			p.Role = model.ProviderRole(role)
			if p.Ref == "" {
				return model.Invalid("ref", "is required")
			}
			if !p.Role.Valid() {
				return model.Invalid("role", "must be vendor or venue_owner")
			}

			a, err := rootOpts.openApp(cmd.Context(), app.Options{SkipSessions: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Store.PutProvider(cmd.Context(), p); err != nil {
				return err
			}
			if rootOpts.Format == FormatJSON {
				return rootOpts.writeJSON(cmd.OutOrStdout(), p)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved %s %s (%s)\n", p.Role, p.Ref, p.Name)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&p.Ref, "ref", "", "provider email")
	f.StringVar(&p.Name, "name", "", "display name")
	f.StringVar(&role, "role", string(model.RoleVendor), "vendor or venue_owner")
	f.StringVar(&p.Services, "services", "", "services offered (vendors)")
	f.StringVar(&p.Phone, "phone", "", "contact phone")
	f.StringVar(&p.Address, "address", "", "street address (venues)")
	f.StringVar(&p.Lat, "lat", "", "latitude (venues)")
	f.StringVar(&p.Lng, "lng", "", "longitude (venues)")
	_ = cmd.MarkFlagRequired("ref")
	return cmd
}

func newProviderListCommand(rootOpts *RootOptions) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := model.ProviderRole(role)
			if role != "" && !r.Valid() {
				return model.Invalid("role", "must be vendor or venue_owner")
			}

			a, err := rootOpts.openApp(cmd.Context(), app.Options{SkipSessions: true})
			if err != nil {
				return err
			}
			defer a.Close()

			providers, err := a.Store.ListProviders(cmd.Context(), r)
			if err != nil {
				return err
			}
			if rootOpts.Format == FormatJSON {
				if providers == nil {
					providers = []model.Provider{}
				}
				return rootOpts.writeJSON(cmd.OutOrStdout(), providers)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REF\tNAME\tROLE\tDETAILS")
			for _, p := range providers {
				details := p.Services
				if p.Role == model.RoleVenueOwner {
					details = p.Address
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Ref, p.Name, p.Role, details)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "filter by role")
	return cmd
}
