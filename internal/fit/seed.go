package fit

import (
	"fmt"
	"math"
	"sort"

	"bragg-dose-lab/internal/domain"
)

// rangeEntry pairs a nominal beam energy with the depth of its Bragg peak.
type rangeEntry struct {
	Energy float64 // MeV
	Depth  float64 // cm
}

var rangeTables = map[domain.Particle][]rangeEntry{
	domain.ParticleProton: {
		{62.4, 3}, {81.3, 5}, {111.6, 9}, {136.8, 13}, {159, 17}, {188.7, 23}, {207, 27},
	},
	domain.ParticleCarbon: {
		{120, 3}, {155.9, 5}, {213.4, 9}, {262.3, 13}, {306.2, 17}, {346.6, 21}, {384.5, 25}, {402.8, 27},
	},
}

// stragglingWidths are the sigma values (cm) at the depths of the first
// two and last two range table entries.
var stragglingWidths = map[domain.Particle][4]float64{
	domain.ParticleProton: {0.055, 0.073, 0.37, 0.39},
	domain.ParticleCarbon: {0.0165, 0.0219, 0.111, 0.117},
}

// SeedOptions holds the starting values and bound widths of a fit.
type SeedOptions struct {
	Phi0        float64
	Epsilon     float64
	Beta        float64 // from literature
	RangeOffset float64 // cm added to the deepest sample
	RangeScale  float64

	Phi0Max         float64
	EpsilonMax      float64
	BetaMax         float64
	R0Below         float64 // r0 lower bound = seed - R0Below
	R0Above         float64 // r0 upper bound = seed + R0Above
	SigmaLowFactor  float64
	SigmaHighFactor float64
}

// DefaultSeedOptions returns the seeding rule used for detector data.
func DefaultSeedOptions() SeedOptions {
	return SeedOptions{
		Phi0:            1,
		Epsilon:         0.1,
		Beta:            0.012,
		RangeOffset:     0.6,
		RangeScale:      1.005,
		Phi0Max:         100,
		EpsilonMax:      0.2,
		BetaMax:         0.1,
		R0Below:         0.02,
		R0Above:         0.5,
		SigmaLowFactor:  0.9,
		SigmaHighFactor: 1.1,
	}
}

// RangeForEnergy returns the peak depth (cm) tabulated for the given
// particle and nominal energy (MeV). Only tabulated energies are known.
func RangeForEnergy(particle domain.Particle, energy float64) (float64, error) {
	table, ok := rangeTables[particle]
	if !ok {
		return 0, fmt.Errorf("%q: %w", particle, ErrUnknownParticle)
	}
	for _, e := range table {
		if e.Energy == energy {
			return e.Depth, nil
		}
	}
	return 0, fmt.Errorf("%s at %g MeV: %w", particle, energy, ErrUnknownEnergy)
}

// Energies lists the tabulated nominal energies of a particle.
func Energies(particle domain.Particle) ([]float64, error) {
	table, ok := rangeTables[particle]
	if !ok {
		return nil, fmt.Errorf("%q: %w", particle, ErrUnknownParticle)
	}
	out := make([]float64, len(table))
	for i, e := range table {
		out[i] = e.Energy
	}
	return out, nil
}

// StragglingWidth interpolates the straggling width (cm) at range r0.
// Outside the table the nearest end value is returned.
func StragglingWidth(particle domain.Particle, r0 float64) (float64, error) {
	table, ok := rangeTables[particle]
	if !ok {
		return 0, fmt.Errorf("%q: %w", particle, ErrUnknownParticle)
	}
	n := len(table)
	xs := []float64{table[0].Depth, table[1].Depth, table[n-2].Depth, table[n-1].Depth}
	ys := stragglingWidths[particle]
	return interp(r0, xs, ys[:]), nil
}

// interp is piecewise-linear interpolation over increasing xs, clamped at
// both ends.
func interp(x float64, xs, ys []float64) float64 {
	if x <= xs[0] {
		return ys[0]
	}
	last := len(xs) - 1
	if x >= xs[last] {
		return ys[last]
	}
	i := sort.SearchFloat64s(xs, x)
	t := (x - xs[i-1]) / (xs[i] - xs[i-1])
	return ys[i-1] + t*(ys[i]-ys[i-1])
}

// EstimateSeed builds starting parameters from an aggregated series: the
// range from the deepest sample and the straggling width from the
// particle's table.
func EstimateSeed(samples []domain.DepthDoseSample, particle domain.Particle, opts SeedOptions) (domain.FitParameters, error) {
	if len(samples) == 0 {
		return domain.FitParameters{}, fmt.Errorf("seed from empty series: %w", domain.ErrInvalidArgument)
	}
	last := samples[len(samples)-1].Depth
	if math.IsNaN(last) || math.IsInf(last, 0) {
		return domain.FitParameters{}, fmt.Errorf("last depth %g: %w", last, domain.ErrInvalidArgument)
	}

	r0 := (last + opts.RangeOffset) * opts.RangeScale
	sigma, err := StragglingWidth(particle, r0)
	if err != nil {
		return domain.FitParameters{}, err
	}

	return domain.FitParameters{
		Phi0:    opts.Phi0,
		Epsilon: opts.Epsilon,
		R0:      r0,
		Beta:    opts.Beta,
		Sigma:   sigma,
	}, nil
}

// DefaultBounds returns the box around a seed: phi0 in [0, Phi0Max],
// epsilon in [0, EpsilonMax], r0 in [r0-R0Below, r0+R0Above], beta in
// [0, BetaMax] and sigma within the given factors of the seed.
func DefaultBounds(seed domain.FitParameters, opts SeedOptions) Bounds {
	return Bounds{
		Lower: domain.FitParameters{
			Phi0:    0,
			Epsilon: 0,
			R0:      seed.R0 - opts.R0Below,
			Beta:    0,
			Sigma:   seed.Sigma * opts.SigmaLowFactor,
		},
		Upper: domain.FitParameters{
			Phi0:    opts.Phi0Max,
			Epsilon: opts.EpsilonMax,
			R0:      seed.R0 + opts.R0Above,
			Beta:    opts.BetaMax,
			Sigma:   seed.Sigma * opts.SigmaHighFactor,
		},
	}
}
