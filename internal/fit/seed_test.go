package fit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bragg-dose-lab/internal/domain"
)

func TestRangeForEnergy(t *testing.T) {
	tests := []struct {
		particle domain.Particle
		energy   float64
		want     float64
	}{
		{domain.ParticleProton, 62.4, 3},
		{domain.ParticleProton, 159, 17},
		{domain.ParticleProton, 207, 27},
		{domain.ParticleCarbon, 120, 3},
		{domain.ParticleCarbon, 346.6, 21},
	}
	for _, tt := range tests {
		got, err := RangeForEnergy(tt.particle, tt.energy)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %g", tt.particle, tt.energy)
	}

	_, err := RangeForEnergy(domain.ParticleProton, 100)
	assert.True(t, errors.Is(err, ErrUnknownEnergy))

	_, err = RangeForEnergy("helium", 100)
	assert.True(t, errors.Is(err, ErrUnknownParticle))
}

func TestEnergies(t *testing.T) {
	es, err := Energies(domain.ParticleCarbon)
	require.NoError(t, err)
	assert.Len(t, es, 8)
	assert.Equal(t, 402.8, es[7])
}

func TestStragglingWidth(t *testing.T) {
	tests := []struct {
		r0   float64
		want float64
	}{
		{1, 0.055},
		{3, 0.055},
		{4, 0.064},
		{5, 0.073},
		{14, 0.073 + 0.5*(0.37-0.073)},
		{25, 0.38},
		{40, 0.39},
	}
	for _, tt := range tests {
		got, err := StragglingWidth(domain.ParticleProton, tt.r0)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-12, "r0=%g", tt.r0)
	}

	c, err := StragglingWidth(domain.ParticleCarbon, 26)
	require.NoError(t, err)
	assert.InDelta(t, 0.114, c, 1e-12)
}

func TestEstimateSeed(t *testing.T) {
	samples := []domain.DepthDoseSample{{Depth: 0, Dose: 7}, {Depth: 10, Dose: 8}, {Depth: 20, Dose: 30}}
	opts := DefaultSeedOptions()

	seed, err := EstimateSeed(samples, domain.ParticleProton, opts)
	require.NoError(t, err)

	r0 := (20 + 0.6) * 1.005
	assert.InDelta(t, r0, seed.R0, 1e-12)
	assert.InDelta(t, 0.073+(r0-5)/18*(0.37-0.073), seed.Sigma, 1e-12)
	assert.Equal(t, 1.0, seed.Phi0)
	assert.Equal(t, 0.1, seed.Epsilon)
	assert.Equal(t, 0.012, seed.Beta)

	_, err = EstimateSeed(nil, domain.ParticleProton, opts)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = EstimateSeed(samples, "pion", opts)
	assert.True(t, errors.Is(err, ErrUnknownParticle))
}

func TestDefaultBounds(t *testing.T) {
	seed := domain.FitParameters{Phi0: 1, Epsilon: 0.1, R0: 16, Beta: 0.012, Sigma: 0.3}
	b := DefaultBounds(seed, DefaultSeedOptions())

	assert.Equal(t, domain.FitParameters{Phi0: 0, Epsilon: 0, R0: 15.98, Beta: 0, Sigma: 0.27}, roundParams(b.Lower))
	assert.Equal(t, domain.FitParameters{Phi0: 100, Epsilon: 0.2, R0: 16.5, Beta: 0.1, Sigma: 0.33}, roundParams(b.Upper))
	assert.NoError(t, b.Validate())
	assert.True(t, b.Contains(seed))
}

func TestBounds_Clamp(t *testing.T) {
	b := DefaultBounds(domain.FitParameters{R0: 16, Sigma: 0.3}, DefaultSeedOptions())
	got := b.Clamp(domain.FitParameters{Phi0: -1, Epsilon: 0.5, R0: 10, Beta: 0.05, Sigma: 1})

	assert.Equal(t, 0.0, got.Phi0)
	assert.Equal(t, 0.2, got.Epsilon)
	assert.InDelta(t, 15.98, got.R0, 1e-12)
	assert.Equal(t, 0.05, got.Beta)
	assert.InDelta(t, 0.33, got.Sigma, 1e-12)
	assert.True(t, b.Contains(got))
}

func roundParams(fp domain.FitParameters) domain.FitParameters {
	x := fp.Vector()
	for i := range x {
		x[i] = float64(int64(x[i]*1e9+0.5)) / 1e9
	}
	return domain.FitParametersFromVector(x)
}
