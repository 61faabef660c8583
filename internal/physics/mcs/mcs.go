// Package mcs implements the lateral spread of a beam from multiple
// Coulomb scattering in a thin slab.
package mcs

import (
	"fmt"
	"math"

	"bragg-dose-lab/internal/domain"
)

// Model evaluates the scattering angle and lateral displacement of a
// projectile. It is immutable once built and safe for concurrent use.
type Model struct {
	eta1   float64
	alpha1 float64
	mass   float64
}

// New builds a Model from parsed MCS parameters.
func New(p domain.MCSParameters) (*Model, error) {
	if p.X0 <= 0 || p.Rho <= 0 || p.ProjectileMass <= 0 {
		return nil, fmt.Errorf("mcs: X0=%g rho=%g mass=%g must be positive: %w",
			p.X0, p.Rho, p.ProjectileMass, domain.ErrInvalidArgument)
	}
	return &Model{
		eta1:   p.Eta1(),
		alpha1: p.Alpha1(),
		mass:   p.ProjectileMass,
	}, nil
}

// ProjectileMass returns the projectile rest mass in MeV.
func (m *Model) ProjectileMass() float64 {
	return m.mass
}

// Theta0 returns the characteristic scattering angle (rad) after a slab of
// thickness x (cm) traversed with kinetic energy T (MeV).
func (m *Model) Theta0(x, T float64) (float64, error) {
	if err := checkStep(x, T); err != nil {
		return 0, err
	}
	return m.eta1 * math.Sqrt(x) / T * (1 + 0.038*math.Log(m.alpha1*x/T)), nil
}

// YPlane returns the projected lateral displacement (cm) after a slab of
// thickness x (cm): x/sqrt(3) * theta0.
func (m *Model) YPlane(x, T float64) (float64, error) {
	theta, err := m.Theta0(x, T)
	if err != nil {
		return 0, err
	}
	return x / math.Sqrt(3) * theta, nil
}

func checkStep(x, T float64) error {
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(T) || math.IsInf(T, 0) {
		return fmt.Errorf("mcs: x=%g T=%g: %w", x, T, domain.ErrInvalidArgument)
	}
	if x <= 0 || T <= 0 {
		return fmt.Errorf("mcs: x=%g T=%g must be positive: %w", x, T, domain.ErrInvalidArgument)
	}
	return nil
}
