package specfunc

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bragg-dose-lab/internal/domain"
)

func dMinusOne(z float64) float64 {
	return math.Exp(z*z/4) * math.Sqrt(math.Pi/2) * math.Erfc(z/math.Sqrt2)
}

func dMinusTwo(z float64) float64 {
	return math.Exp(-z*z/4) - z*dMinusOne(z)
}

func TestFactorial(t *testing.T) {
	got, err := Factorial(1/1.77 - 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.57539, got, 1e-4)

	got, err = Factorial(4)
	require.NoError(t, err)
	assert.InDelta(t, 24, got, 1e-12)

	_, err = Factorial(-2)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = Factorial(math.NaN())
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestParabolicCylinderD_ClosedForms(t *testing.T) {
	for _, z := range []float64{-6, -3, -1, -0.25, 0, 0.5, 1, 2.5, 4} {
		d1, err := ParabolicCylinderD(-1, z)
		require.NoError(t, err)
		assert.InEpsilon(t, dMinusOne(z), d1, 1e-7, "D_-1(%g)", z)

		d2, err := ParabolicCylinderD(-2, z)
		require.NoError(t, err)
		assert.InEpsilon(t, dMinusTwo(z), d2, 1e-7, "D_-2(%g)", z)
	}
}

func TestParabolicCylinderD_Recurrence(t *testing.T) {
	for _, z := range []float64{-3, -1, -0.25, 0.5, 1, 2.5} {
		d0, err := ParabolicCylinderD(0, z)
		require.NoError(t, err)
		assert.InEpsilon(t, math.Exp(-z*z/4), d0, 1e-6, "D_0(%g)", z)

		d1, err := ParabolicCylinderD(1, z)
		require.NoError(t, err)
		assert.InEpsilon(t, z*math.Exp(-z*z/4), d1, 1e-6, "D_1(%g)", z)
	}
}

func TestParabolicCylinderD_AtOrigin(t *testing.T) {
	// D_v(0) = 2^(v/2) sqrt(pi) / Γ((1-v)/2)
	for _, v := range []float64{-1 / 1.77, -1/1.77 - 1, -0.3, -2.7} {
		want := math.Pow(2, v/2) * math.Sqrt(math.Pi) / math.Gamma((1-v)/2)
		got, err := ParabolicCylinderD(v, 0)
		require.NoError(t, err)
		assert.InEpsilon(t, want, got, 1e-7, "D_%g(0)", v)
	}
}

func TestScaledD_FiniteFarFromPeak(t *testing.T) {
	for _, xi := range []float64{-10, -5, 0, 5, 10, 20} {
		s, err := ScaledD(-1/1.77, xi)
		require.NoError(t, err)
		assert.False(t, math.IsNaN(s) || math.IsInf(s, 0), "xi=%g", xi)
		assert.GreaterOrEqual(t, s, 0.0)
	}

	// exp(-xi^2/4) D_-1(-xi) -> sqrt(2 pi) as xi grows
	s, err := ScaledD(-1, 8)
	require.NoError(t, err)
	assert.InEpsilon(t, math.Sqrt(2*math.Pi), s, 1e-6)
}

func TestScaledD_RejectsNonFinite(t *testing.T) {
	_, err := ScaledD(math.Inf(1), 1)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = ScaledD(-0.5, math.NaN())
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}
