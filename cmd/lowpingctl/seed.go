package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Genoux/website/internal/domain"
	"github.com/Genoux/website/internal/events"
	"github.com/Genoux/website/internal/platform/config"
)

// seedFile is the YAML document accepted by `lowpingctl seed`.
type seedFile struct {
	Events []seedEvent `yaml:"events"`
}

type seedEvent struct {
	ID          string `yaml:"id"`
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	Date        string `yaml:"date"`
	Time        string `yaml:"time"`
	Price       int64  `yaml:"price"` // minor units
	Currency    string `yaml:"currency"`
	Poster      string `yaml:"poster"`
	Game        string `yaml:"game"`
	FormType    string `yaml:"form_type"`
	Location    string `yaml:"location"`
	Description string `yaml:"description"`
}

func newSeedCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Upsert events from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()

			return a.withStore(ctx, func(cfg config.Config, store eventStore) error {
				loc, err := cfg.Site.Location()
				if err != nil {
					return err
				}
				list, err := parseSeed(f, cfg.Site.Currency, loc, a.now().UTC())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, ev := range list {
					if dryRun {
						fmt.Fprintf(out, "would upsert %s (%s)\n", ev.ID, ev.Name)
						continue
					}
					if err := store.Events().Upsert(ctx, ev); err != nil {
						return fmt.Errorf("upsert %s: %w", ev.ID, err)
					}
					fmt.Fprintf(out, "upserted %s (%s)\n", ev.ID, ev.Name)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	return cmd
}

// parseSeed decodes and validates a seed document. Every problem is reported
// at once so a file can be fixed in one pass.
func parseSeed(r io.Reader, defaultCurrency string, loc *time.Location, now time.Time) ([]domain.Event, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc seedFile
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("seed file is empty")
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	var problems []string
	seenIDs := make(map[string]struct{}, len(doc.Events))
	seenSlugs := make(map[string]struct{}, len(doc.Events))
	out := make([]domain.Event, 0, len(doc.Events))
	for i, raw := range doc.Events {
		ev := raw.toDomain(defaultCurrency, now)
		where := fmt.Sprintf("events[%d]", i)
		if ev.ID == "" {
			problems = append(problems, where+": id is required")
		} else {
			where = fmt.Sprintf("events[%d] %s", i, ev.ID)
			if _, dup := seenIDs[ev.ID]; dup {
				problems = append(problems, where+": duplicate id")
			}
			seenIDs[ev.ID] = struct{}{}
		}
		if ev.Slug != "" {
			if _, dup := seenSlugs[ev.Slug]; dup {
				problems = append(problems, where+": duplicate slug "+ev.Slug)
			}
			seenSlugs[ev.Slug] = struct{}{}
		}
		if ev.Name == "" {
			problems = append(problems, where+": name is required")
		}
		if _, err := events.StartsAt(ev, loc); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", where, err))
		}
		if ev.Price < 0 {
			problems = append(problems, where+": price must not be negative")
		}
		if ev.Game != "" && !ev.Game.Valid() {
			problems = append(problems, fmt.Sprintf("%s: unknown game %q", where, ev.Game))
		}
		out = append(out, ev)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid seed file:\n  %s", strings.Join(problems, "\n  "))
	}
	return out, nil
}

func (s seedEvent) toDomain(defaultCurrency string, now time.Time) domain.Event {
	currency := strings.ToUpper(strings.TrimSpace(s.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	return domain.Event{
		ID:          strings.TrimSpace(s.ID),
		Slug:        strings.TrimSpace(s.Slug),
		Name:        strings.TrimSpace(s.Name),
		Date:        strings.TrimSpace(s.Date),
		Time:        strings.TrimSpace(s.Time),
		Price:       s.Price,
		Currency:    currency,
		Poster:      strings.TrimSpace(s.Poster),
		Game:        domain.GameTag(strings.ToLower(strings.TrimSpace(s.Game))),
		FormType:    domain.FormType(strings.ToLower(strings.TrimSpace(s.FormType))),
		Location:    strings.TrimSpace(s.Location),
		Description: strings.TrimSpace(s.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
