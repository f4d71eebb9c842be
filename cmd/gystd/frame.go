package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"GYST-Loop/internal/config"
	"GYST-Loop/internal/narrative"
)

func newFrameCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		scrollY        float64
		pinStart       float64
		pinnedDistance float64
	)
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Print the pinned-section frame for a scroll position as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			tl, err := timelineFor(cfg)
			if err != nil {
				return err
			}
			distance := pinnedDistance
			if distance <= 0 {
				distance = cfg.Narrative.PinnedDistance
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(narrative.ComputeFrame(scrollY, pinStart, distance, tl))
		},
	}
	cmd.Flags().Float64Var(&scrollY, "scroll-y", 0, "document scroll offset in pixels")
	cmd.Flags().Float64Var(&pinStart, "pin-start", 0, "scroll offset where the section pins")
	cmd.Flags().Float64Var(&pinnedDistance, "pinned-distance", 0, "virtual scroll distance of the pinned section (default from config)")
	return cmd
}
