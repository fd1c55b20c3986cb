package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/streak.profile/internal/fsutil"
	"github.com/banshee-data/streak.profile/internal/streak"
)

var testParams = []string{
	"--x-ind", "1",
	"--y-ind", "2",
	"--y-base", "200",
	"--scale-factor", "1",
	"--exposure-time", "10",
	"--exposure-time-error", "0.1",
	"--measurement-error", "0.5",
}

// newTestFS loads the testdata files into a memory filesystem under their
// base names.
func newTestFS(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	fsys := fsutil.NewMemoryFileSystem()
	for _, name := range []string{"streaks.csv", "odd.csv", "experiment.hujson"} {
		data, err := os.ReadFile(filepath.Join("testdata", name))
		require.NoError(t, err)
		fsys.AddFile(name, data)
	}
	return fsys
}

func run(t *testing.T, fsys fsutil.FileSystem, args ...string) (string, error) {
	t.Helper()
	return runApp(t, &app{fsys: fsys}, args...)
}

func runApp(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestExtractCommand(t *testing.T) {
	fsys := newTestFS(t)
	args := append([]string{"extract", "streaks.csv", "--out", "out/table.csv", "--json", "out/table.json"}, testParams...)

	out, err := run(t, fsys, args...)
	require.NoError(t, err)
	for _, col := range streak.Columns() {
		assert.Contains(t, out, col)
	}
	assert.Contains(t, out, "12.000000")

	data, err := fsys.ReadFile("out/table.csv")
	require.NoError(t, err)
	set, err := streak.ReadCSV(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 5, set.Len())
	assert.Equal(t, []float64{10, 20, 30, 40, 50}, set.DY())

	var rows []map[string]float64
	data, err = fsys.ReadFile("out/table.json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 5)
	assert.InDelta(t, 20.0, rows[2]["velocity"], 1e-12)

	out, err = run(t, fsys, "validate", "out/table.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "ok, 5 measurements")
}

func TestExtractQuiet(t *testing.T) {
	out, err := run(t, newTestFS(t), append([]string{"extract", "-q", "streaks.csv"}, testParams...)...)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestExtractMissingParams(t *testing.T) {
	_, err := run(t, newTestFS(t), "extract", "streaks.csv", "--x-ind", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required parameters")
	assert.Contains(t, err.Error(), "exposure_time")
}

func TestExtractNoDataFile(t *testing.T) {
	_, err := run(t, newTestFS(t), append([]string{"extract"}, testParams...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data file")
}

func TestExtractInvalidFlag(t *testing.T) {
	args := append([]string{"extract", "streaks.csv"}, testParams...)
	args = append(args, "--exposure-time", "-1")
	_, err := run(t, newTestFS(t), args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exposure_time must be positive")
}

func TestExtractRejectsNonFiniteFlags(t *testing.T) {
	tests := []struct {
		flag  string
		value string
		want  string
	}{
		{"--exposure-time", "NaN", "exposure_time must be positive and finite"},
		{"--exposure-time", "+Inf", "exposure_time must be positive and finite"},
		{"--y-base", "NaN", "y_base must be finite"},
		{"--scale-factor", "NaN", "scale_factor must be positive and finite"},
		{"--measurement-error", "Inf", "measurement_error must be non-negative and finite"},
		{"--exposure-time-error", "NaN", "exposure_time_error must be non-negative and finite"},
	}
	for _, tt := range tests {
		t.Run(tt.flag+"="+tt.value, func(t *testing.T) {
			args := append([]string{"extract", "streaks.csv"}, testParams...)
			args = append(args, tt.flag, tt.value)
			out, err := run(t, newTestFS(t), args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.NotContains(t, out, "NaN")
		})
	}
}

func TestOddRowWarningLoggedOnce(t *testing.T) {
	handler := memory.New()
	a := &app{fsys: newTestFS(t), logHandler: handler}

	_, err := runApp(t, a, append([]string{"extract", "-q", "odd.csv"}, testParams...)...)
	require.NoError(t, err)

	var warnings []string
	for _, e := range handler.Entries {
		if e.Level == log.WarnLevel {
			warnings = append(warnings, e.Message)
		}
	}
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "line 12")
}

func TestOddRows(t *testing.T) {
	fsys := newTestFS(t)

	out, err := run(t, fsys, append([]string{"profile", "-q", "odd.csv"}, testParams...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "streaks: 5")
	assert.Contains(t, out, "dropped rows: 1")

	args := append([]string{"profile", "odd.csv", "--odd-rows", "strict"}, testParams...)
	_, err = run(t, fsys, args...)
	require.Error(t, err)
	assert.ErrorIs(t, err, streak.ErrDomain)
}

func TestProfileCommand(t *testing.T) {
	fsys := newTestFS(t)
	args := append([]string{
		"profile", "streaks.csv",
		"--plot", "out/profile.png",
		"--html", "out/profile.html",
		"--report", "out/report.json",
	}, testParams...)

	out, err := run(t, fsys, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "fit: x = -0.0200y^2 + 1.2000y + 2.0000")
	assert.Contains(t, out, "weighting: inverse-variance")
	assert.Contains(t, out, "R^2: 1.0000")
	assert.NotContains(t, out, "dropped rows")

	png, err := fsys.ReadFile("out/profile.png")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	html, err := fsys.ReadFile("out/profile.html")
	require.NoError(t, err)
	assert.Contains(t, string(html), "Velocity data")

	data, err := fsys.ReadFile("out/report.json")
	require.NoError(t, err)
	var report runReport
	require.NoError(t, json.Unmarshal(data, &report))
	_, err = uuid.Parse(report.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "streaks.csv", report.DataFile)
	assert.Equal(t, 5, report.Streaks)
	assert.Equal(t, "inverse-variance", report.Weighting)
	require.Len(t, report.Coefficients, 3)
	assert.InDelta(t, -0.02, report.Coefficients[0], 1e-9)
	assert.InDelta(t, 1.2, report.Coefficients[1], 1e-9)
	assert.InDelta(t, 2.0, report.Coefficients[2], 1e-9)
	assert.Equal(t, [2]float64{10, 50}, report.DYRange)
	assert.Len(t, report.Measurements, 5)
	require.NotNil(t, report.Experiment.ExposureTime)
	assert.Equal(t, 10.0, *report.Experiment.ExposureTime)
}

func TestProfileConfigFileWithOverride(t *testing.T) {
	fsys := newTestFS(t)

	out, err := run(t, fsys, "profile", "-q", "--config", "experiment.hujson", "--weighting", "none")
	require.NoError(t, err)
	assert.Contains(t, out, "fit: x = -0.0200y^2 + 1.2000y + 2.0000")
	assert.Contains(t, out, "weighting: none")

	// Doubling the exposure halves every velocity and so every coefficient.
	out, err = run(t, fsys, "profile", "-q", "--config", "experiment.hujson", "--exposure-time", "20")
	require.NoError(t, err)
	assert.Contains(t, out, "fit: x = -0.0100y^2 + 0.6000y + 1.0000")
}

func TestProfileOpen(t *testing.T) {
	orig := openBrowser
	defer func() { openBrowser = orig }()

	var opened []string
	openBrowser = func(url string) error {
		opened = append(opened, url)
		return nil
	}

	fsys := newTestFS(t)
	args := append([]string{"profile", "-q", "streaks.csv", "--html", "page.html", "--open"}, testParams...)
	_, err := run(t, fsys, args...)
	require.NoError(t, err)
	require.Len(t, opened, 1)
	assert.True(t, strings.HasPrefix(opened[0], "file://"))
	assert.True(t, strings.HasSuffix(opened[0], "/page.html"))

	_, err = run(t, fsys, append([]string{"profile", "streaks.csv", "--open"}, testParams...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--open requires --html")
}

func TestProfileBadPlotFormat(t *testing.T) {
	args := append([]string{"profile", "-q", "streaks.csv", "--plot", "profile.bmp"}, testParams...)
	_, err := run(t, newTestFS(t), args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported plot format")
}

func TestValidateRejectsWrongHeader(t *testing.T) {
	fsys := newTestFS(t)
	fsys.AddFile("bad.csv", []byte("d_y,velocity,length,err_y,err_length,err_velocity\n1,2,3,4,5,6\n"))

	_, err := run(t, fsys, "validate", "bad.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, streak.ErrSchema)

	_, err = run(t, fsys, "validate", "missing.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, streak.ErrIO)
}

func TestPresetsCommand(t *testing.T) {
	out, err := run(t, newTestFS(t), "presets")
	require.NoError(t, err)
	assert.Contains(t, out, "size")
	assert.Contains(t, out, "straight")
	assert.Contains(t, out, "2.155")
}

func TestPresetFlag(t *testing.T) {
	// The straight preset reads columns 1 and 2 with y_base 200, like the test data.
	out, err := run(t, newTestFS(t), "extract", "--preset", "straight", "streaks.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "21.550000")

	_, err = run(t, newTestFS(t), "extract", "--preset", "curved", "streaks.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown preset")
}
