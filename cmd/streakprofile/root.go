package main

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/banshee-data/streak.profile/internal/config"
	"github.com/banshee-data/streak.profile/internal/fsutil"
	"github.com/banshee-data/streak.profile/internal/monitoring"
	"github.com/banshee-data/streak.profile/internal/version"
)

// app holds what every subcommand shares.
type app struct {
	fsys fsutil.FileSystem
	// logHandler receives CLI logs; nil means the cli handler on stderr.
	logHandler log.Handler

	configPath string
	preset     string
	verbose    bool
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "streakprofile",
		Short:         "Velocity profiles from digitised particle streaks",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.setupLogging()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Experiment config file (.json or .hujson)")
	pf.StringVar(&a.preset, "preset", "", "Built-in experiment preset (see 'presets')")
	pf.BoolVar(&a.verbose, "verbose", false, "Enable debug logging")
	addExperimentFlags(pf)

	root.AddCommand(
		extractSubcommand(a),
		profileSubcommand(a),
		validateSubcommand(a),
		presetsSubcommand(),
	)
	return root
}

func (a *app) setupLogging() {
	if a.logHandler != nil {
		log.SetHandler(a.logHandler)
	} else {
		log.SetHandler(cli.New(os.Stderr))
	}
	if a.verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	monitoring.SetLogger(log.Debugf)
	monitoring.SetWarnLogger(log.Warnf)
}

// addExperimentFlags registers one override flag per experiment option.
func addExperimentFlags(fs *pflag.FlagSet) {
	fs.Int("x-ind", 0, "Zero-based column of the x coordinate")
	fs.Int("y-ind", 0, "Zero-based column of the y coordinate")
	fs.Float64("y-base", 0, "Channel wall position in raw y units")
	fs.Float64("scale-factor", 0, "Raw units to physical distance")
	fs.Float64("exposure-time", 0, "Camera exposure time")
	fs.Float64("exposure-time-error", 0, "Absolute exposure time uncertainty")
	fs.Float64("measurement-error", 0, "Digitisation uncertainty in raw units")
	fs.String("odd-rows", "", "Trailing unpaired row: truncate or strict")
	fs.String("weighting", "", "Fit weighting: inverse-variance or none")
	fs.String("title", "", "Plot title")
	fs.String("xlabel", "", "Velocity axis label")
	fs.String("ylabel", "", "Distance axis label")
}

// flagOverrides collects the experiment flags the user actually set.
func flagOverrides(fs *pflag.FlagSet) (*config.Experiment, error) {
	o := &config.Experiment{}
	var err error
	setInt := func(name string, dst **int) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var v int
		if v, err = fs.GetInt(name); err == nil {
			*dst = &v
		}
	}
	setFloat := func(name string, dst **float64) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var v float64
		if v, err = fs.GetFloat64(name); err == nil {
			*dst = &v
		}
	}
	setString := func(name string, dst **string) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var v string
		if v, err = fs.GetString(name); err == nil {
			*dst = &v
		}
	}

	setInt("x-ind", &o.XIndex)
	setInt("y-ind", &o.YIndex)
	setFloat("y-base", &o.YBase)
	setFloat("scale-factor", &o.ScaleFactor)
	setFloat("exposure-time", &o.ExposureTime)
	setFloat("exposure-time-error", &o.ExposureTimeError)
	setFloat("measurement-error", &o.MeasurementError)
	setString("odd-rows", &o.OddRows)
	setString("weighting", &o.Weighting)
	setString("title", &o.Title)
	setString("xlabel", &o.XLabel)
	setString("ylabel", &o.YLabel)
	return o, err
}

// experiment resolves preset, then config file, then flags, then the
// positional data file, each overriding the previous.
func (a *app) experiment(cmd *cobra.Command, args []string) (*config.Experiment, error) {
	cfg := &config.Experiment{}
	if a.preset != "" {
		p, err := config.Preset(a.preset)
		if err != nil {
			return nil, err
		}
		cfg.Merge(p)
	}
	if a.configPath != "" {
		fileCfg, err := config.LoadExperiment(a.fsys, a.configPath)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg)
	}
	overrides, err := flagOverrides(cmd.Flags())
	if err != nil {
		return nil, err
	}
	cfg.Merge(overrides)
	if len(args) > 0 {
		cfg.Merge(&config.Experiment{DataFile: &args[0]})
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.GetDataFile() == "" {
		return nil, fmt.Errorf("no data file: pass one as an argument or set data_file in the config")
	}
	return cfg, nil
}
