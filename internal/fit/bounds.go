package fit

import (
	"fmt"
	"math"

	"bragg-dose-lab/internal/domain"
)

// Bounds is a box constraint on the fit parameters.
type Bounds struct {
	Lower domain.FitParameters
	Upper domain.FitParameters
}

// Validate checks that every bound is finite and Lower <= Upper.
func (b Bounds) Validate() error {
	lo, hi := b.Lower.Vector(), b.Upper.Vector()
	for i := range lo {
		if math.IsNaN(lo[i]) || math.IsNaN(hi[i]) || math.IsInf(lo[i], 0) || math.IsInf(hi[i], 0) {
			return fmt.Errorf("bounds on %s must be finite: %w", domain.FitParameterNames[i], domain.ErrInvalidArgument)
		}
		if lo[i] > hi[i] {
			return fmt.Errorf("bounds on %s: lower %g > upper %g: %w",
				domain.FitParameterNames[i], lo[i], hi[i], domain.ErrInvalidArgument)
		}
	}
	return nil
}

// Contains reports whether fp lies inside the box.
func (b Bounds) Contains(fp domain.FitParameters) bool {
	x, lo, hi := fp.Vector(), b.Lower.Vector(), b.Upper.Vector()
	for i := range x {
		if x[i] < lo[i] || x[i] > hi[i] {
			return false
		}
	}
	return true
}

// Clamp returns fp projected onto the box.
func (b Bounds) Clamp(fp domain.FitParameters) domain.FitParameters {
	x := fp.Vector()
	b.clampVec(x)
	return domain.FitParametersFromVector(x)
}

func (b Bounds) clampVec(x []float64) {
	lo, hi := b.Lower.Vector(), b.Upper.Vector()
	for i := range x {
		x[i] = math.Min(math.Max(x[i], lo[i]), hi[i])
	}
}
