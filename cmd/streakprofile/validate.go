package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/streak.profile/internal/streak"
)

func validateSubcommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE.csv",
		Short: "Check that a measurement table has the expected columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := a.fsys.Open(path)
			if err != nil {
				return fmt.Errorf("%w: failed to open %s: %w", streak.ErrIO, path, err)
			}
			defer f.Close()

			set, err := streak.ReadCSV(f)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d measurements\n", path, set.Len())
			return nil
		},
	}
}
