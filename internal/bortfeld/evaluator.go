// Package bortfeld evaluates the analytic Bragg curve of a proton or ion
// beam: a closed-form plateau, a Gaussian-convolved peak built on the
// parabolic-cylinder function, and zero dose beyond the range.
package bortfeld

import (
	"fmt"
	"math"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/specfunc"
)

const (
	// PlateauSigmas is the distance before r0, in units of sigma, where
	// the plateau formula hands over to the peak formula.
	PlateauSigmas = 10.0
	// TailSigmas is the distance past r0, in units of sigma, beyond which
	// the dose is zero.
	TailSigmas = 5.0
)

// Region identifies the branch of the piecewise dose formula.
type Region int

const (
	RegionPlateau Region = iota
	RegionPeak
	RegionBeyond
)

func (r Region) String() string {
	switch r {
	case RegionPlateau:
		return "plateau"
	case RegionPeak:
		return "peak"
	case RegionBeyond:
		return "beyond"
	default:
		return fmt.Sprintf("Region(%d)", int(r))
	}
}

// Evaluator computes the dose per unit depth and unit fluence
// (MeV cm^-1 per particle) for fixed model parameters.
// It holds no mutable state and may be shared between goroutines.
type Evaluator struct {
	params    domain.ModelParameters
	invP      float64 // 1/p
	alphaRoot float64 // alpha^(1/p)
	factorial float64 // (1/p - 1)!
}

// New validates the model parameters and precomputes the terms that only
// depend on them.
func New(params domain.ModelParameters) (*Evaluator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	invP := 1 / params.P
	fact, err := specfunc.Factorial(invP - 1)
	if err != nil {
		return nil, fmt.Errorf("factorial term for p=%g: %w", params.P, err)
	}
	return &Evaluator{
		params:    params,
		invP:      invP,
		alphaRoot: math.Pow(params.Alpha, invP),
		factorial: fact,
	}, nil
}

// Params returns the model parameters the evaluator was built with.
func (e *Evaluator) Params() domain.ModelParameters {
	return e.params
}

// FactorialTerm returns (1/p - 1)!, about 1.57539 for p = 1.77.
func (e *Evaluator) FactorialTerm() float64 {
	return e.factorial
}

// Region reports which branch Evaluate uses at depth z.
func (e *Evaluator) Region(z float64, fp domain.FitParameters) Region {
	switch {
	case z < fp.R0-PlateauSigmas*fp.Sigma:
		return RegionPlateau
	case z <= fp.R0+TailSigmas*fp.Sigma:
		return RegionPeak
	default:
		return RegionBeyond
	}
}

// Evaluate returns the dose at depth z (cm).
func (e *Evaluator) Evaluate(z float64, fp domain.FitParameters) (float64, error) {
	if err := checkInputs(z, fp); err != nil {
		return 0, err
	}

	p := e.params.P
	norm := e.params.Rho * p * e.alphaRoot * (1 + fp.Beta*fp.R0)

	switch e.Region(z, fp) {
	case RegionPlateau:
		d := fp.R0 - z
		tail := fp.Beta + e.params.Gamma*fp.Beta*p + fp.Epsilon*p/fp.R0
		return fp.Phi0 / norm * (math.Pow(d, e.invP-1) + tail*math.Pow(d, e.invP)), nil

	case RegionPeak:
		xi := (fp.R0 - z) / fp.Sigma
		d1, err := specfunc.ScaledD(-e.invP, xi)
		if err != nil {
			return 0, err
		}
		d2, err := specfunc.ScaledD(-e.invP-1, xi)
		if err != nil {
			return 0, err
		}
		tail := fp.Beta/p + e.params.Gamma*fp.Beta + fp.Epsilon/fp.R0
		pre := fp.Phi0 * math.Pow(fp.Sigma, e.invP) * e.factorial / (math.Sqrt(2*math.Pi) * norm)
		return pre * (d1/fp.Sigma + tail*d2), nil

	default:
		return 0, nil
	}
}

// Curve evaluates the dose at every depth in zs.
func (e *Evaluator) Curve(zs []float64, fp domain.FitParameters) ([]float64, error) {
	out := make([]float64, len(zs))
	for i, z := range zs {
		d, err := e.Evaluate(z, fp)
		if err != nil {
			return nil, fmt.Errorf("depth[%d]=%g: %w", i, z, err)
		}
		out[i] = d
	}
	return out, nil
}

func checkInputs(z float64, fp domain.FitParameters) error {
	if !isFinite(z) {
		return fmt.Errorf("depth %g: %w", z, domain.ErrInvalidArgument)
	}
	for i, v := range fp.Vector() {
		if !isFinite(v) {
			return fmt.Errorf("%s=%g: %w", domain.FitParameterNames[i], v, domain.ErrInvalidArgument)
		}
	}
	if fp.R0 <= 0 || fp.Sigma <= 0 {
		return fmt.Errorf("r0=%g sigma=%g must be positive: %w", fp.R0, fp.Sigma, domain.ErrInvalidArgument)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
