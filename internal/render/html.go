package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/streak.profile/internal/profile"
	"github.com/banshee-data/streak.profile/internal/streak"
)

// WriteHTML renders an interactive page: measured streaks as a scatter of
// [velocity, d_y, err_velocity, err_y] and the fitted curve as a line.
// Hovering a point shows its uncertainties.
func WriteHTML(w io.Writer, set *streak.MeasurementSet, fit *profile.Fit, labels Labels) error {
	if set.Len() == 0 {
		return fmt.Errorf("no measurements to plot")
	}

	subtitle := fmt.Sprintf("streaks=%d", set.Len())
	if fit != nil {
		subtitle = fmt.Sprintf("streaks=%d weighting=%s R²=%.4f", set.Len(), fit.Weighting, fit.RSquared)
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: labels.Title, Width: "960px", Height: "680px"}),
		charts.WithTitleOpts(opts.Title{Title: labels.Title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: labels.XLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: labels.YLabel, NameLocation: "middle", NameGap: 40}),
	)

	data := make([]opts.ScatterData, 0, set.Len())
	for _, m := range set.Measurements() {
		data = append(data, opts.ScatterData{Value: []interface{}{m.Velocity, m.DY, m.ErrVelocity, m.ErrY}})
	}
	scatter.AddSeries(DataLegend, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))

	if fit != nil {
		dy, v := fit.Sample(profile.DefaultSamples)
		curve := make([]opts.LineData, len(dy))
		for i := range dy {
			curve[i] = opts.LineData{Value: []interface{}{v[i], dy[i]}}
		}
		line := charts.NewLine()
		line.AddSeries(fit.Label(), curve, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
		scatter.Overlap(line)
	}

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
