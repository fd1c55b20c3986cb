package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/streak.profile/internal/config"
)

func presetsSubcommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in experiment presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSCALE\tEXPOSURE\tDATA FILE")
			for _, name := range config.PresetNames() {
				p, err := config.Preset(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%.6g\t%g\t%s\n", name, *p.ScaleFactor, *p.ExposureTime, p.GetDataFile())
			}
			return tw.Flush()
		},
	}
}
