package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"GYST-Loop/internal/config"
	"GYST-Loop/internal/narrative"
)

func newSimulateCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		viewport float64
		step     float64
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Scroll through the whole page and print the active section and frame per step",
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
			if viewport <= 0 {
				viewport = cfg.Narrative.ViewportHeight
			}
			if step <= 0 {
				return fmt.Errorf("step 必须大于 0")
			}
			page, err := narrative.NewPage(narrative.PageConfig{
				ViewportHeight: viewport,
				PinnedDistance: cfg.Narrative.PinnedDistance,
				Timeline:       tl,
			})
			if err != nil {
				return err
			}
			defer page.Close()

			total := page.Layout().Total()
			var snapshots []narrative.Snapshot
			for y := 0.0; y <= total; y += step {
				snapshots = append(snapshots, page.Scroll(y))
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snapshots)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SCROLL\tACTIVE\tPROGRESS\tPHASE\tDONE")
			for _, s := range snapshots {
				fmt.Fprintf(tw, "%.0f\t%s\t%s\t%d\t%t\n", s.ScrollY, s.Active, s.Frame.Label, s.Frame.Phase, s.Frame.Completed)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Float64Var(&viewport, "viewport", 0, "viewport height in pixels (default from config)")
	cmd.Flags().Float64Var(&step, "step", 250, "scroll increment in pixels")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print snapshots as JSON")
	return cmd
}
