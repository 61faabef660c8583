package specfunc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"bragg-dose-lab/internal/domain"
)

const (
	// gaussTail is the half-width, in units of the unit Gaussian, beyond
	// which the integrand is dropped (exp(-72) relative).
	gaussTail = 12.0
	// panelWidth is the width of one Gauss-Legendre panel in t.
	panelWidth = 1.0
	// panelNodes is the number of Legendre nodes per panel.
	panelNodes = 20
	// originNodes is the number of nodes on the panel touching t = 0.
	originNodes = 24
)

// ParabolicCylinderD returns the Weber parabolic-cylinder function D_v(z).
//
// The result is computed from ScaledD and overflows for large positive z
// with small v; callers that multiply by exp(-z^2/4) should use ScaledD.
func ParabolicCylinderD(v, z float64) (float64, error) {
	s, err := ScaledD(v, -z)
	if err != nil {
		return 0, err
	}
	return math.Exp(z*z/4) * s, nil
}

// ScaledD returns exp(-xi^2/4) * D_v(-xi).
//
// For v < 0 it evaluates
//
//	exp(-xi^2/4) D_v(-xi) = 1/Γ(-v) ∫_0^∞ t^(-v-1) exp(-(t-xi)^2/2) dt
//
// which stays finite for any real xi. Orders v >= 0 are reached by
// forward recurrence from two negative orders.
func ScaledD(v, xi float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.IsNaN(xi) || math.IsInf(xi, 0) {
		return 0, fmt.Errorf("D_%g(%g): %w", v, -xi, domain.ErrInvalidArgument)
	}
	if v < 0 {
		return scaledNegative(v, xi), nil
	}

	// S_{k+1} = -xi S_k - k S_{k-1}, seeded at k0 in [-1, 0).
	k := v - math.Floor(v) - 1
	prev := scaledNegative(k-1, xi)
	cur := scaledNegative(k, xi)
	for ; k < v-0.5; k++ {
		prev, cur = cur, -xi*cur-k*prev
	}
	return cur, nil
}

// scaledNegative evaluates the integral representation for v < 0.
func scaledNegative(v, xi float64) float64 {
	a := -v
	lo := math.Max(0, xi-gaussTail)
	hi := math.Max(xi, 0) + gaussTail

	integrand := func(t float64) float64 {
		d := t - xi
		return math.Pow(t, a-1) * math.Exp(-d*d/2)
	}

	var sum float64
	start := lo
	if lo == 0 {
		// Near the origin t^(a-1) is not smooth. Substituting t = s^m
		// turns it into m s^(m a - 1), which is at least C^3 for m a >= 4.
		end := math.Min(hi, panelWidth)
		m := math.Ceil(4 / a)
		origin := func(s float64) float64 {
			t := math.Pow(s, m)
			d := t - xi
			return m * math.Pow(s, m*a-1) * math.Exp(-d*d/2)
		}
		sum += quad.Fixed(origin, 0, math.Pow(end, 1/m), originNodes, quad.Legendre{}, 0)
		start = end
	}

	for start < hi {
		end := math.Min(hi, start+panelWidth)
		sum += quad.Fixed(integrand, start, end, panelNodes, quad.Legendre{}, 0)
		start = end
	}

	return sum / math.Gamma(a)
}
