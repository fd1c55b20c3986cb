// Package streak turns digitised streak endpoints into velocity and
// distance-from-wall measurements with propagated uncertainty.
//
// Input rows come in consecutive pairs: the two endpoints of one particle
// streak recorded during a single camera exposure. Each pair yields one
// Measurement. Coordinates are raw image units until multiplied by the
// dataset's scale factor.
package streak

import (
	"fmt"
	"strings"
)

// Column names of a Measurement, in output order.
const (
	ColDY          = "d_y"
	ColLength      = "length"
	ColVelocity    = "velocity"
	ColErrY        = "err_y"
	ColErrLength   = "err_length"
	ColErrVelocity = "err_velocity"
)

// Columns returns the fixed column order of a measurement table.
func Columns() []string {
	return []string{ColDY, ColLength, ColVelocity, ColErrY, ColErrLength, ColErrVelocity}
}

// OddRowPolicy selects what Extract does with a trailing unpaired row.
type OddRowPolicy int

const (
	// OddRowsTruncate drops the trailing row with a warning. This matches the
	// behaviour of the lab's original analysis scripts.
	OddRowsTruncate OddRowPolicy = iota
	// OddRowsStrict rejects the dataset with a DomainError.
	OddRowsStrict
)

var oddRowPolicyNames = map[OddRowPolicy]string{
	OddRowsTruncate: "truncate",
	OddRowsStrict:   "strict",
}

func (p OddRowPolicy) String() string {
	if n, ok := oddRowPolicyNames[p]; ok {
		return n
	}
	return fmt.Sprintf("OddRowPolicy(%d)", int(p))
}

// ParseOddRowPolicy parses "truncate" or "strict" (case-insensitive).
func ParseOddRowPolicy(s string) (OddRowPolicy, error) {
	for p, name := range oddRowPolicyNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("invalid odd row policy %q, expected truncate or strict", s)
}

// Params holds the per-dataset extraction parameters. Every field is
// required; there are no implicit defaults.
type Params struct {
	XIndex int // zero-based column of the x coordinate
	YIndex int // zero-based column of the y coordinate

	YBase             float64 // channel wall position, raw y units
	ScaleFactor       float64 // raw units -> physical distance
	ExposureTime      float64 // must be > 0
	ExposureTimeError float64 // absolute uncertainty on ExposureTime
	MeasurementError  float64 // digitisation uncertainty, raw units

	OddRows OddRowPolicy
}

// Measurement is the derived record for one streak.
type Measurement struct {
	DY          float64 `json:"d_y"`
	Length      float64 `json:"length"`
	Velocity    float64 `json:"velocity"`
	ErrY        float64 `json:"err_y"`
	ErrLength   float64 `json:"err_length"`
	ErrVelocity float64 `json:"err_velocity"`
}

// Values returns the fields in Columns() order.
func (m Measurement) Values() []float64 {
	return []float64{m.DY, m.Length, m.Velocity, m.ErrY, m.ErrLength, m.ErrVelocity}
}

// MeasurementSet is an ordered, read-only collection of measurements, one
// per streak in input order.
type MeasurementSet struct {
	measurements []Measurement
	dropped      int
}

// NewMeasurementSet builds a set from already derived measurements, for
// tables loaded from disk or constructed by callers.
func NewMeasurementSet(ms []Measurement) *MeasurementSet {
	return newMeasurementSet(append([]Measurement(nil), ms...), 0)
}

func newMeasurementSet(ms []Measurement, dropped int) *MeasurementSet {
	return &MeasurementSet{measurements: ms, dropped: dropped}
}

// Len returns the number of measurements.
func (s *MeasurementSet) Len() int { return len(s.measurements) }

// At returns the i-th measurement.
func (s *MeasurementSet) At(i int) Measurement { return s.measurements[i] }

// Measurements returns a copy of the measurements.
func (s *MeasurementSet) Measurements() []Measurement {
	return append([]Measurement(nil), s.measurements...)
}

// Dropped reports how many trailing input rows were left unpaired.
func (s *MeasurementSet) Dropped() int { return s.dropped }

// Column returns a copy of the named column.
func (s *MeasurementSet) Column(name string) ([]float64, error) {
	idx := -1
	for i, c := range Columns() {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]float64, len(s.measurements))
	for i, m := range s.measurements {
		out[i] = m.Values()[idx]
	}
	return out, nil
}

// DY returns the distance-from-wall column.
func (s *MeasurementSet) DY() []float64 {
	return s.pluck(func(m Measurement) float64 { return m.DY })
}

// Velocity returns the velocity column.
func (s *MeasurementSet) Velocity() []float64 {
	return s.pluck(func(m Measurement) float64 { return m.Velocity })
}

// ErrY returns the distance uncertainty column.
func (s *MeasurementSet) ErrY() []float64 {
	return s.pluck(func(m Measurement) float64 { return m.ErrY })
}

// ErrVelocity returns the velocity uncertainty column.
func (s *MeasurementSet) ErrVelocity() []float64 {
	return s.pluck(func(m Measurement) float64 { return m.ErrVelocity })
}

func (s *MeasurementSet) pluck(f func(Measurement) float64) []float64 {
	out := make([]float64, len(s.measurements))
	for i, m := range s.measurements {
		out[i] = f(m)
	}
	return out
}
