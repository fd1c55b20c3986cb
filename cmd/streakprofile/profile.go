package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/streak.profile/internal/config"
	"github.com/banshee-data/streak.profile/internal/profile"
	"github.com/banshee-data/streak.profile/internal/render"
	"github.com/banshee-data/streak.profile/internal/streak"
)

// openBrowser is replaced in tests.
var openBrowser = render.OpenBrowser

type profileOptions struct {
	plotPath   string
	htmlPath   string
	reportPath string
	open       bool
	quiet      bool
	width      float64 // inches
	height     float64 // inches
}

func profileSubcommand(a *app) *cobra.Command {
	opts := &profileOptions{}
	cmd := &cobra.Command{
		Use:   "profile [DATA.csv]",
		Short: "Extract, fit the quadratic velocity profile and render it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.experiment(cmd, args)
			if err != nil {
				return err
			}
			return a.runProfile(cmd.OutOrStdout(), cfg, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.plotPath, "plot", "", "Write the plot image (.png, .svg, .pdf, ...)")
	f.StringVar(&opts.htmlPath, "html", "", "Write an interactive HTML page")
	f.StringVar(&opts.reportPath, "report", "", "Write a JSON run report")
	f.BoolVar(&opts.open, "open", false, "Open the HTML page in the default browser (requires --html)")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print the measurement table")
	f.Float64Var(&opts.width, "width", 8, "Plot width in inches")
	f.Float64Var(&opts.height, "height", 6, "Plot height in inches")
	return cmd
}

func (a *app) runProfile(out io.Writer, cfg *config.Experiment, opts *profileOptions) error {
	if opts.open && opts.htmlPath == "" {
		return fmt.Errorf("--open requires --html")
	}
	if opts.width <= 0 || opts.height <= 0 {
		return fmt.Errorf("plot size must be positive, got %gx%g in", opts.width, opts.height)
	}

	set, err := a.extract(cfg)
	if err != nil {
		return err
	}
	if !opts.quiet {
		if err := streak.WriteTable(out, set); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	fit, err := profile.FitQuadratic(set, cfg.GetWeighting())
	if err != nil {
		return fmt.Errorf("fit %s: %w", cfg.GetDataFile(), err)
	}
	if fit.Weighting != cfg.GetWeighting() {
		log.Warnf("requested %s weighting, fitted with %s", cfg.GetWeighting(), fit.Weighting)
	}
	writeSummary(out, set, fit)

	labels := render.Labels{
		Title:  cfg.GetTitle(),
		XLabel: cfg.GetXLabel(),
		YLabel: cfg.GetYLabel(),
	}
	if opts.plotPath != "" {
		p, err := render.NewPlot(set, fit, labels)
		if err != nil {
			return err
		}
		w, h := vg.Length(opts.width)*vg.Inch, vg.Length(opts.height)*vg.Inch
		if err := render.SavePlot(a.fsys, opts.plotPath, p, w, h); err != nil {
			return err
		}
		log.Infof("wrote plot to %s", opts.plotPath)
	}
	if opts.htmlPath != "" {
		err := writeFile(a.fsys, opts.htmlPath, func(w io.Writer) error {
			return render.WriteHTML(w, set, fit, labels)
		})
		if err != nil {
			return err
		}
		log.Infof("wrote interactive plot to %s", opts.htmlPath)
		if opts.open {
			abs, err := filepath.Abs(opts.htmlPath)
			if err != nil {
				return err
			}
			if err := openBrowser("file://" + filepath.ToSlash(abs)); err != nil {
				return err
			}
		}
	}
	if opts.reportPath != "" {
		report := newRunReport(cfg, set, fit)
		err := writeFile(a.fsys, opts.reportPath, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		})
		if err != nil {
			return err
		}
		log.Infof("wrote run report %s to %s", report.RunID, opts.reportPath)
	}
	return nil
}

func writeSummary(out io.Writer, set *streak.MeasurementSet, fit *profile.Fit) {
	fmt.Fprintln(out, fit.Label())
	if se := fit.StdErr(); se != nil {
		fmt.Fprintf(out, "std err: a=%.4g b=%.4g c=%.4g\n", se[0], se[1], se[2])
	}
	fmt.Fprintf(out, "streaks: %d  weighting: %s  R^2: %.4f\n", fit.N, fit.Weighting, fit.RSquared)
	if set.Dropped() > 0 {
		fmt.Fprintf(out, "dropped rows: %d\n", set.Dropped())
	}
}

// runReport is the JSON document written by --report.
type runReport struct {
	RunID        string               `json:"run_id"`
	GeneratedAt  time.Time            `json:"generated_at"`
	DataFile     string               `json:"data_file"`
	Experiment   *config.Experiment   `json:"experiment"`
	Streaks      int                  `json:"streaks"`
	DroppedRows  int                  `json:"dropped_rows"`
	Weighting    string               `json:"weighting"`
	Coefficients []float64            `json:"coefficients"`
	StdErr       []float64            `json:"std_err,omitempty"`
	Residual     float64              `json:"residual"`
	RSquared     float64              `json:"r_squared"`
	DYRange      [2]float64           `json:"dy_range"`
	Measurements []streak.Measurement `json:"measurements"`
}

func newRunReport(cfg *config.Experiment, set *streak.MeasurementSet, fit *profile.Fit) runReport {
	return runReport{
		RunID:        uuid.NewString(),
		GeneratedAt:  time.Now().UTC(),
		DataFile:     cfg.GetDataFile(),
		Experiment:   cfg,
		Streaks:      set.Len(),
		DroppedRows:  set.Dropped(),
		Weighting:    fit.Weighting.String(),
		Coefficients: fit.Coeffs,
		StdErr:       fit.StdErr(),
		Residual:     fit.Residual,
		RSquared:     fit.RSquared,
		DYRange:      [2]float64{fit.DYMin, fit.DYMax},
		Measurements: set.Measurements(),
	}
}
