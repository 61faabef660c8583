package dedx

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bragg-dose-lab/internal/domain"
)

func water() domain.StoppingParameters {
	return domain.StoppingParameters{
		K:              0.307075,
		Z:              7.42,
		A:              13.0,
		ChargeNumber:   1,
		ProjectileMass: 938.272,
	}
}

func TestDEDX(t *testing.T) {
	m, err := New(water())
	require.NoError(t, err)

	got, err := m.DEDX(200)
	require.NoError(t, err)
	want := 0.307075 * 7.42 / 13.0 * 938.272 / 2 / 200
	assert.InEpsilon(t, want, got, 1e-12)

	// inverse in T
	half, err := m.DEDX(100)
	require.NoError(t, err)
	assert.InEpsilon(t, 2*got, half, 1e-12)
}

func TestDEDX_InvalidEnergy(t *testing.T) {
	m, err := New(water())
	require.NoError(t, err)

	for _, T := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, err := m.DEDX(T)
		assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "T=%g", T)
	}
}

func TestNew_RejectsZeroA(t *testing.T) {
	p := water()
	p.A = 0
	_, err := New(p)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}
