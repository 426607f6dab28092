package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Genoux/website/internal/events"
	"github.com/Genoux/website/internal/platform/config"
	"github.com/Genoux/website/internal/registration"
)

func newEventsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect published events",
	}
	cmd.AddCommand(newEventsListCmd(a))
	return cmd
}

func newEventsListCmd(a *app) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events matching a catalogue filter (all, upcoming, past, game:<tag>)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, err := events.ParseFilter(filter)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return a.withStore(ctx, func(cfg config.Config, store eventStore) error {
				loc, err := cfg.Site.Location()
				if err != nil {
					return err
				}
				list, err := store.Events().List(ctx)
				if err != nil {
					return err
				}
				now := a.now()
				matched, err := events.Filter(list, sel, now, loc)
				if err != nil {
					return err
				}

				preset, err := registration.ParseCopyPreset(cfg.Site.RegistrationCopy)
				if err != nil {
					return err
				}
				format := events.NewFormatter(registration.CopyFor(preset).Locale, loc)
				schemas := registration.DefaultSchemas()

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSLUG\tDATE\tTIME\tSTATUS\tGAME\tFORM\tPRICE")
				for _, ev := range matched {
					form := string(ev.FormType)
					if !schemas.Supports(ev.FormType) {
						form += " (unsupported)"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						ev.ID,
						dash(ev.Slug),
						format.Date(ev),
						format.Time(ev),
						events.ClassifyEvent(ev, now, loc),
						dash(string(ev.Game)),
						dash(form),
						format.EventPrice(ev, cfg.Site.Currency),
					)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", events.All.String(), "catalogue filter")
	return cmd
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
