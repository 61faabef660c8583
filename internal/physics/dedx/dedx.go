// Package dedx implements a simplified non-relativistic stopping power.
package dedx

import (
	"fmt"
	"math"

	"bragg-dose-lab/internal/domain"
)

// Model returns the mean energy loss per unit length,
// K z^2 Z/A * Mp / (2 T).
type Model struct {
	eta1 float64
	mass float64
}

// New builds a Model from parsed stopping-power parameters.
func New(p domain.StoppingParameters) (*Model, error) {
	if p.A <= 0 || p.ProjectileMass <= 0 {
		return nil, fmt.Errorf("dedx: A=%g mass=%g must be positive: %w", p.A, p.ProjectileMass, domain.ErrInvalidArgument)
	}
	return &Model{eta1: p.Eta1(), mass: p.ProjectileMass}, nil
}

// ProjectileMass returns the projectile rest mass in MeV.
func (m *Model) ProjectileMass() float64 {
	return m.mass
}

// DEDX returns the stopping power (MeV/cm) at kinetic energy T (MeV).
func (m *Model) DEDX(T float64) (float64, error) {
	if math.IsNaN(T) || math.IsInf(T, 0) || T <= 0 {
		return 0, fmt.Errorf("dedx: T=%g: %w", T, domain.ErrInvalidArgument)
	}
	return m.eta1 * m.mass / 2 / T, nil
}
