// Package render draws a measurement set and its fitted velocity profile,
// either as a static image (gonum/plot) or as an interactive HTML page
// (go-echarts).
package render

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/streak.profile/internal/fsutil"
	"github.com/banshee-data/streak.profile/internal/profile"
	"github.com/banshee-data/streak.profile/internal/streak"
)

// Default image size.
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

// DataLegend is the legend entry of the measured points.
const DataLegend = "Velocity data"

var (
	dataColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	fitColor  = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// Labels are the display strings of a rendered profile.
type Labels struct {
	Title  string
	XLabel string // velocity axis
	YLabel string // distance-from-wall axis
}

// errorPoints carries positions and both error bars for the plotters.
type errorPoints struct {
	plotter.XYs
	plotter.XErrors
	plotter.YErrors
}

func newErrorPoints(set *streak.MeasurementSet) errorPoints {
	n := set.Len()
	pts := errorPoints{
		XYs:     make(plotter.XYs, n),
		XErrors: make(plotter.XErrors, n),
		YErrors: make(plotter.YErrors, n),
	}
	for i := 0; i < n; i++ {
		m := set.At(i)
		pts.XYs[i] = plotter.XY{X: m.Velocity, Y: m.DY}
		pts.XErrors[i].Low, pts.XErrors[i].High = m.ErrVelocity, m.ErrVelocity
		pts.YErrors[i].Low, pts.YErrors[i].High = m.ErrY, m.ErrY
	}
	return pts
}

// NewPlot builds an error-bar scatter of velocity against distance from the
// wall. When fit is non-nil its curve is overlaid across the observed d_y
// range.
func NewPlot(set *streak.MeasurementSet, fit *profile.Fit, labels Labels) (*plot.Plot, error) {
	if set.Len() == 0 {
		return nil, fmt.Errorf("no measurements to plot")
	}

	p := plot.New()
	p.Title.Text = labels.Title
	p.X.Label.Text = labels.XLabel
	p.Y.Label.Text = labels.YLabel
	p.Add(plotter.NewGrid())

	pts := newErrorPoints(set)

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Color = dataColor

	xerr, err := plotter.NewXErrorBars(pts)
	if err != nil {
		return nil, fmt.Errorf("velocity error bars: %w", err)
	}
	xerr.LineStyle.Color = dataColor

	yerr, err := plotter.NewYErrorBars(pts)
	if err != nil {
		return nil, fmt.Errorf("distance error bars: %w", err)
	}
	yerr.LineStyle.Color = dataColor

	p.Add(xerr, yerr, scatter)
	p.Legend.Add(DataLegend, scatter)

	if fit != nil {
		dy, v := fit.Sample(profile.DefaultSamples)
		curve := make(plotter.XYs, len(dy))
		for i := range dy {
			curve[i] = plotter.XY{X: v[i], Y: dy[i]}
		}
		line, err := plotter.NewLine(curve)
		if err != nil {
			return nil, fmt.Errorf("fit line: %w", err)
		}
		line.Color = fitColor
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fit.Label(), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p, nil
}

// imageFormat maps a file extension to a gonum/plot format name.
func imageFormat(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "png", "svg", "pdf", "eps", "jpg", "jpeg", "tif", "tiff":
		return ext, nil
	default:
		return "", fmt.Errorf("unsupported plot format %q (use png, svg, pdf, eps, jpg or tiff)", ext)
	}
}

// SavePlot writes p to path on fsys in the format given by the extension.
func SavePlot(fsys fsutil.FileSystem, path string, p *plot.Plot, width, height vg.Length) error {
	format, err := imageFormat(path)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, height, format)
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}

	f, err := fsutil.CreateWithDirs(fsys, path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
