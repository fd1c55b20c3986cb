// Package config loads the experiment parameters that drive extraction,
// fitting and rendering. One Experiment carries every option; there is no
// package-level state.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/banshee-data/streak.profile/internal/fsutil"
	"github.com/banshee-data/streak.profile/internal/profile"
	"github.com/banshee-data/streak.profile/internal/streak"
)

// Display defaults. Extraction parameters have no defaults.
const (
	DefaultTitle  = "Velocity Profile"
	DefaultXLabel = "Velocity"
	DefaultYLabel = "Distance from wall"
)

const maxConfigSize = 1 * 1024 * 1024 // 1MB

// Experiment is the configuration of one streak dataset. Fields are
// pointers so a file may be partial and later completed by a preset or by
// command-line flags; Merge overlays one Experiment onto another.
type Experiment struct {
	DataFile *string `json:"data_file,omitempty"`

	// Extraction params (all required before Params is called)
	XIndex            *int     `json:"x_ind,omitempty"`
	YIndex            *int     `json:"y_ind,omitempty"`
	YBase             *float64 `json:"y_base,omitempty"`
	ScaleFactor       *float64 `json:"scale_factor,omitempty"`
	ExposureTime      *float64 `json:"exposure_time,omitempty"`
	ExposureTimeError *float64 `json:"exposure_time_error,omitempty"`
	MeasurementError  *float64 `json:"measurement_error,omitempty"`
	OddRows           *string  `json:"odd_rows,omitempty"` // truncate|strict

	// Fit and display params
	Weighting *string `json:"weighting,omitempty"` // inverse-variance|none
	Title     *string `json:"title,omitempty"`
	XLabel    *string `json:"xlabel,omitempty"`
	YLabel    *string `json:"ylabel,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// LoadExperiment loads an Experiment from a .json or .hujson file.
// Comments and trailing commas are accepted. Unknown keys are rejected so a
// misspelt parameter cannot silently fall through to a flag default.
func LoadExperiment(fsys fsutil.FileSystem, path string) (*Experiment, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" && ext != ".hujson" {
		return nil, fmt.Errorf("config file must have .json or .hujson extension, got %q", ext)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", len(data), maxConfigSize)
	}

	cfg, err := ParseExperiment(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	return cfg, nil
}

// ParseExperiment decodes HuJSON (or plain JSON) and validates the values
// that are present.
func ParseExperiment(data []byte) (*Experiment, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := &Experiment{}
	dec := json.NewDecoder(bytes.NewReader(std))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set. Missing values are not an error
// here; see Complete.
func (c *Experiment) Validate() error {
	if c.XIndex != nil && *c.XIndex < 0 {
		return fmt.Errorf("x_ind must be non-negative, got %d", *c.XIndex)
	}
	if c.YIndex != nil && *c.YIndex < 0 {
		return fmt.Errorf("y_ind must be non-negative, got %d", *c.YIndex)
	}
	if c.ScaleFactor != nil && !positive(*c.ScaleFactor) {
		return fmt.Errorf("scale_factor must be positive and finite, got %g", *c.ScaleFactor)
	}
	if c.ExposureTime != nil && !positive(*c.ExposureTime) {
		return fmt.Errorf("exposure_time must be positive and finite, got %g", *c.ExposureTime)
	}
	if c.YBase != nil && !finite(*c.YBase) {
		return fmt.Errorf("y_base must be finite, got %g", *c.YBase)
	}
	if c.ExposureTimeError != nil && !(*c.ExposureTimeError >= 0 && finite(*c.ExposureTimeError)) {
		return fmt.Errorf("exposure_time_error must be non-negative and finite, got %g", *c.ExposureTimeError)
	}
	if c.MeasurementError != nil && !(*c.MeasurementError >= 0 && finite(*c.MeasurementError)) {
		return fmt.Errorf("measurement_error must be non-negative and finite, got %g", *c.MeasurementError)
	}
	if c.OddRows != nil {
		if _, err := streak.ParseOddRowPolicy(*c.OddRows); err != nil {
			return err
		}
	}
	if c.Weighting != nil {
		if _, err := profile.ParseWeighting(*c.Weighting); err != nil {
			return err
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// positive is false for NaN and +Inf.
func positive(v float64) bool { return v > 0 && finite(v) }

// Complete reports every required extraction parameter that is unset.
func (c *Experiment) Complete() error {
	var missing []string
	if c.XIndex == nil {
		missing = append(missing, "x_ind")
	}
	if c.YIndex == nil {
		missing = append(missing, "y_ind")
	}
	if c.YBase == nil {
		missing = append(missing, "y_base")
	}
	if c.ScaleFactor == nil {
		missing = append(missing, "scale_factor")
	}
	if c.ExposureTime == nil {
		missing = append(missing, "exposure_time")
	}
	if c.ExposureTimeError == nil {
		missing = append(missing, "exposure_time_error")
	}
	if c.MeasurementError == nil {
		missing = append(missing, "measurement_error")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required parameters: %v", missing)
	}
	return nil
}

// Params converts a complete, valid Experiment into extraction parameters.
func (c *Experiment) Params() (streak.Params, error) {
	if err := c.Validate(); err != nil {
		return streak.Params{}, err
	}
	if err := c.Complete(); err != nil {
		return streak.Params{}, err
	}
	return streak.Params{
		XIndex:            *c.XIndex,
		YIndex:            *c.YIndex,
		YBase:             *c.YBase,
		ScaleFactor:       *c.ScaleFactor,
		ExposureTime:      *c.ExposureTime,
		ExposureTimeError: *c.ExposureTimeError,
		MeasurementError:  *c.MeasurementError,
		OddRows:           c.GetOddRows(),
	}, nil
}

// Merge overlays every field set in o onto c.
func (c *Experiment) Merge(o *Experiment) {
	if o == nil {
		return
	}
	mergePtr(&c.DataFile, o.DataFile)
	mergePtr(&c.XIndex, o.XIndex)
	mergePtr(&c.YIndex, o.YIndex)
	mergePtr(&c.YBase, o.YBase)
	mergePtr(&c.ScaleFactor, o.ScaleFactor)
	mergePtr(&c.ExposureTime, o.ExposureTime)
	mergePtr(&c.ExposureTimeError, o.ExposureTimeError)
	mergePtr(&c.MeasurementError, o.MeasurementError)
	mergePtr(&c.OddRows, o.OddRows)
	mergePtr(&c.Weighting, o.Weighting)
	mergePtr(&c.Title, o.Title)
	mergePtr(&c.XLabel, o.XLabel)
	mergePtr(&c.YLabel, o.YLabel)
}

func mergePtr[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// GetOddRows returns the odd row policy or the truncating default.
func (c *Experiment) GetOddRows() streak.OddRowPolicy {
	if c.OddRows == nil {
		return streak.OddRowsTruncate
	}
	p, err := streak.ParseOddRowPolicy(*c.OddRows)
	if err != nil {
		return streak.OddRowsTruncate // default on parse error
	}
	return p
}

// GetWeighting returns the fit weighting or the inverse-variance default.
func (c *Experiment) GetWeighting() profile.Weighting {
	if c.Weighting == nil {
		return profile.WeightInverseVariance
	}
	w, err := profile.ParseWeighting(*c.Weighting)
	if err != nil {
		return profile.WeightInverseVariance // default on parse error
	}
	return w
}

// GetDataFile returns the data file path or "".
func (c *Experiment) GetDataFile() string {
	if c.DataFile == nil {
		return ""
	}
	return *c.DataFile
}

// GetTitle returns the plot title or the default.
func (c *Experiment) GetTitle() string {
	if c.Title == nil || *c.Title == "" {
		return DefaultTitle
	}
	return *c.Title
}

// GetXLabel returns the velocity axis label or the default.
func (c *Experiment) GetXLabel() string {
	if c.XLabel == nil || *c.XLabel == "" {
		return DefaultXLabel
	}
	return *c.XLabel
}

// GetYLabel returns the distance axis label or the default.
func (c *Experiment) GetYLabel() string {
	if c.YLabel == nil || *c.YLabel == "" {
		return DefaultYLabel
	}
	return *c.YLabel
}
