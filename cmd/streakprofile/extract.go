package main

import (
	"fmt"
	"io"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/banshee-data/streak.profile/internal/config"
	"github.com/banshee-data/streak.profile/internal/fsutil"
	"github.com/banshee-data/streak.profile/internal/streak"
)

func extractSubcommand(a *app) *cobra.Command {
	var (
		csvOut  string
		jsonOut string
		quiet   bool
	)
	cmd := &cobra.Command{
		Use:   "extract [DATA.csv]",
		Short: "Convert streak endpoints into a measurement table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.experiment(cmd, args)
			if err != nil {
				return err
			}
			set, err := a.extract(cfg)
			if err != nil {
				return err
			}
			if !quiet {
				if err := streak.WriteTable(cmd.OutOrStdout(), set); err != nil {
					return err
				}
			}
			if csvOut != "" {
				if err := writeFile(a.fsys, csvOut, func(w io.Writer) error { return streak.WriteCSV(w, set) }); err != nil {
					return err
				}
				log.Infof("wrote %d measurements to %s", set.Len(), csvOut)
			}
			if jsonOut != "" {
				if err := writeFile(a.fsys, jsonOut, func(w io.Writer) error { return streak.WriteJSON(w, set) }); err != nil {
					return err
				}
				log.Infof("wrote %d measurements to %s", set.Len(), jsonOut)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&csvOut, "out", "", "Write the measurement table as CSV")
	cmd.Flags().StringVar(&jsonOut, "json", "", "Write the measurement table as JSON")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print the table")
	return cmd
}

// extract runs the extractor on the configured data file.
func (a *app) extract(cfg *config.Experiment) (*streak.MeasurementSet, error) {
	params, err := cfg.Params()
	if err != nil {
		return nil, err
	}
	path := cfg.GetDataFile()
	set, err := streak.ExtractFile(a.fsys, path, params)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	log.Debugf("extracted %d streaks from %s", set.Len(), path)
	return set, nil
}

// writeFile creates path (and its parent directories) and hands it to write.
func writeFile(fsys fsutil.FileSystem, path string, write func(io.Writer) error) error {
	f, err := fsutil.CreateWithDirs(fsys, path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
