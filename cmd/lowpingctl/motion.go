package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Genoux/website/internal/motion"
)

type motionDump struct {
	ScrollLockMs int                            `json:"scrollLockMs"`
	Intro        []motion.Cue                   `json:"intro"`
	Variants     map[motion.Name]motion.Variant `json:"variants"`
}

func newMotionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "motion",
		Short: "Inspect the animation catalogue",
	}
	cmd.AddCommand(newMotionDumpCmd())
	return cmd
}

func newMotionDumpCmd() *cobra.Command {
	var names []string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the intro schedule and variant catalogue as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := motion.NewDefaultRegistry()
			if err != nil {
				return err
			}
			intro, err := registry.Sequence(motion.IntroOrder()...)
			if err != nil {
				return err
			}

			selected := registry.Names()
			if len(names) > 0 {
				selected = selected[:0:0]
				for _, n := range names {
					selected = append(selected, motion.Name(n))
				}
			}
			dump := motionDump{
				ScrollLockMs: motion.DefaultTimeline().Intro.ScrollLockMs,
				Intro:        intro,
				Variants:     make(map[motion.Name]motion.Variant, len(selected)),
			}
			for _, name := range selected {
				v, err := registry.Lookup(name)
				if err != nil {
					return fmt.Errorf("variant %s: %w", name, err)
				}
				dump.Variants[name] = v
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dump)
		},
	}
	cmd.Flags().StringSliceVar(&names, "name", nil, "only dump these variants")
	return cmd
}
