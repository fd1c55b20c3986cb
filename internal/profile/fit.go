// Package profile fits the quadratic velocity profile of laminar flow near
// a channel wall: velocity = a*d_y^2 + b*d_y + c.
package profile

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/streak.profile/internal/monitoring"
	"github.com/banshee-data/streak.profile/internal/streak"
)

// DefaultSamples is the number of points used to draw the fitted curve.
const DefaultSamples = 1000

// Weighting selects how per-point velocity uncertainty enters the fit.
type Weighting int

const (
	// WeightInverseVariance weights each streak by 1/err_velocity^2.
	WeightInverseVariance Weighting = iota
	// WeightNone is an ordinary unweighted least-squares fit.
	WeightNone
)

var weightingNames = map[Weighting]string{
	WeightInverseVariance: "inverse-variance",
	WeightNone:            "none",
}

func (w Weighting) String() string {
	if n, ok := weightingNames[w]; ok {
		return n
	}
	return fmt.Sprintf("Weighting(%d)", int(w))
}

// ParseWeighting parses "inverse-variance" or "none".
func ParseWeighting(s string) (Weighting, error) {
	for w, name := range weightingNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return w, nil
		}
	}
	return 0, fmt.Errorf("invalid weighting %q, expected inverse-variance or none", s)
}

// Fit is a quadratic velocity profile over the observed d_y range.
type Fit struct {
	PolyfitResult

	// Weighting actually applied, which may differ from the requested one.
	Weighting Weighting
	N         int
	RSquared  float64

	DYMin, DYMax float64
}

// FitQuadratic fits velocity as a quadratic function of d_y.
//
// Inverse-variance weighting needs every err_velocity to be positive; when
// any is not, the fit falls back to unweighted and logs a warning.
func FitQuadratic(set *streak.MeasurementSet, weighting Weighting) (*Fit, error) {
	if set.Len() < 3 {
		return nil, fmt.Errorf("%w: have %d measurements, need at least 3", ErrTooFewPoints, set.Len())
	}
	dy := set.DY()
	v := set.Velocity()

	var w []float64
	if weighting == WeightInverseVariance {
		w = inverseVariance(set.ErrVelocity())
		if w == nil {
			monitoring.Warnf("velocity uncertainty is zero for at least one streak, fitting unweighted")
			weighting = WeightNone
		}
	}

	res, err := Polyfit(dy, v, w, 2)
	if err != nil {
		return nil, err
	}

	f := &Fit{
		PolyfitResult: *res,
		Weighting:     weighting,
		N:             set.Len(),
		DYMin:         floats.Min(dy),
		DYMax:         floats.Max(dy),
	}
	f.RSquared = rSquared(dy, v, w, f.Coeffs)
	monitoring.Logf("fitted %d streaks (%s): %s, R^2=%.4f", f.N, f.Weighting, f.Label(), f.RSquared)
	return f, nil
}

// inverseVariance returns 1/e^2 weights, or nil if any e is not positive.
func inverseVariance(errs []float64) []float64 {
	w := make([]float64, len(errs))
	for i, e := range errs {
		if !(e > 0) || math.IsInf(e, 0) {
			return nil
		}
		w[i] = 1 / (e * e)
	}
	return w
}

func rSquared(x, y, w, coeffs []float64) float64 {
	mean := stat.Mean(y, w)
	var ssRes, ssTot float64
	for i := range x {
		wi := 1.0
		if w != nil {
			wi = w[i]
		}
		r := y[i] - EvalPoly(coeffs, x[i])
		d := y[i] - mean
		ssRes += wi * r * r
		ssTot += wi * d * d
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}

// Eval returns the fitted velocity at distance dy.
func (f *Fit) Eval(dy float64) float64 {
	return EvalPoly(f.Coeffs, dy)
}

// Sample evaluates the curve at n evenly spaced d_y values spanning the
// observed range. n below 2 is raised to 2.
func (f *Fit) Sample(n int) (dy, velocity []float64) {
	if n < 2 {
		n = 2
	}
	dy = floats.Span(make([]float64, n), f.DYMin, f.DYMax)
	velocity = make([]float64, n)
	for i, x := range dy {
		velocity[i] = f.Eval(x)
	}
	return dy, velocity
}

// StdErr returns the standard error of each coefficient, or nil when the
// fit has no residual degrees of freedom.
func (f *Fit) StdErr() []float64 {
	if f.Cov == nil {
		return nil
	}
	out := make([]float64, len(f.Coeffs))
	for i := range out {
		out[i] = math.Sqrt(f.Cov.At(i, i))
	}
	return out
}

// Label renders the fit as the plot legend shows it, with velocity on the
// horizontal (x) axis and distance on the vertical (y) axis.
func (f *Fit) Label() string {
	return fmt.Sprintf("fit: x = %.4fy^2 + %.4fy + %.4f", f.Coeffs[0], f.Coeffs[1], f.Coeffs[2])
}
