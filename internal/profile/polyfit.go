package profile

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrTooFewPoints is returned when the data cannot determine every coefficient.
var ErrTooFewPoints = errors.New("too few points for polynomial fit")

// ErrDegenerate is returned when the abscissae do not span enough distinct
// values for the requested degree.
var ErrDegenerate = errors.New("degenerate fit: not enough distinct x values")

// PolyfitResult is a least-squares polynomial fit.
type PolyfitResult struct {
	// Coeffs holds the coefficients, highest power first.
	Coeffs []float64
	// Cov is the coefficient covariance scaled by Residual/DOF. Nil when DOF is zero.
	Cov *mat.SymDense
	// Residual is the (weighted) sum of squared residuals.
	Residual float64
	DOF      int
}

// Polyfit fits y = c[0]*x^d + ... + c[d] by least squares. w holds
// per-point weights applied to the squared residuals; nil means unweighted.
//
// Columns of the Vandermonde matrix are normalised before the QR solve to
// keep the problem well conditioned for large x.
func Polyfit(x, y, w []float64, degree int) (*PolyfitResult, error) {
	if degree < 0 {
		return nil, fmt.Errorf("invalid degree %d", degree)
	}
	n, m := len(x), degree+1
	if len(y) != n || (w != nil && len(w) != n) {
		return nil, fmt.Errorf("length mismatch: x=%d y=%d w=%d", n, len(y), len(w))
	}
	if n < m {
		return nil, fmt.Errorf("%w: have %d, need %d for degree %d", ErrTooFewPoints, n, m, degree)
	}
	if distinct(x) < m {
		return nil, fmt.Errorf("%w: have %d, need %d for degree %d", ErrDegenerate, distinct(x), m, degree)
	}
	for i, wi := range w {
		if !(wi > 0) || math.IsInf(wi, 0) {
			return nil, fmt.Errorf("weight %d must be positive and finite, got %g", i, wi)
		}
	}

	a := mat.NewDense(n, m, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		sw := 1.0
		if w != nil {
			sw = math.Sqrt(w[i])
		}
		for j := 0; j < m; j++ {
			a.Set(i, j, sw*math.Pow(x[i], float64(degree-j)))
		}
		b.SetVec(i, sw*y[i])
	}

	scale := make([]float64, m)
	for j := 0; j < m; j++ {
		col := mat.Col(nil, j, a)
		scale[j] = floats.Norm(col, 2)
		if scale[j] == 0 {
			return nil, fmt.Errorf("%w: column %d is zero", ErrDegenerate, j)
		}
		floats.Scale(1/scale[j], col)
		a.SetCol(j, col)
	}

	var qr mat.QR
	qr.Factorize(a)
	var c mat.VecDense
	if err := qr.SolveVecTo(&c, false, b); err != nil {
		return nil, fmt.Errorf("least squares solve failed: %w", err)
	}

	var resid mat.VecDense
	resid.MulVec(a, &c)
	resid.SubVec(b, &resid)
	ssr := mat.Dot(&resid, &resid)

	coeffs := make([]float64, m)
	for j := range coeffs {
		coeffs[j] = c.AtVec(j) / scale[j]
	}

	res := &PolyfitResult{Coeffs: coeffs, Residual: ssr, DOF: n - m}
	if res.DOF == 0 {
		return res, nil
	}

	var ata mat.SymDense
	ata.SymOuterK(1, a.T())
	var chol mat.Cholesky
	if ok := chol.Factorize(&ata); !ok {
		return nil, fmt.Errorf("%w: normal matrix is not positive definite", ErrDegenerate)
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("covariance inversion failed: %w", err)
	}

	fac := ssr / float64(res.DOF)
	cov := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			cov.SetSym(i, j, inv.At(i, j)*fac/(scale[i]*scale[j]))
		}
	}
	res.Cov = cov
	return res, nil
}

// EvalPoly evaluates coefficients (highest power first) at x.
func EvalPoly(coeffs []float64, x float64) float64 {
	var v float64
	for _, c := range coeffs {
		v = v*x + c
	}
	return v
}

func distinct(xs []float64) int {
	seen := make(map[float64]struct{}, len(xs))
	for _, x := range xs {
		seen[x] = struct{}{}
	}
	return len(seen)
}
