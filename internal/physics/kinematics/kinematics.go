// Package kinematics derives relativistic quantities of a projectile from
// its kinetic energy and rest mass.
package kinematics

import (
	"fmt"
	"math"

	"go-hep.org/x/hep/fmom"

	"bragg-dose-lab/internal/domain"
)

// State describes a projectile moving along +z.
type State struct {
	Kinetic   float64 // T (MeV)
	Mass      float64 // rest mass (MeV)
	Energy    float64 // total energy E = M + T (MeV)
	Momentum  float64 // |p| (MeV/c)
	Beta      float64 // v/c
	Gamma     float64 // Lorentz factor
	BetaGamma float64
}

// FromKinetic returns the state of a projectile of the given mass (MeV)
// and kinetic energy T (MeV).
func FromKinetic(T, mass float64) (State, error) {
	if math.IsNaN(T) || math.IsInf(T, 0) || T < 0 || mass <= 0 || math.IsInf(mass, 0) {
		return State{}, fmt.Errorf("kinematics: T=%g mass=%g: %w", T, mass, domain.ErrInvalidArgument)
	}

	e := mass + T
	pz := math.Sqrt(e*e - mass*mass)
	p4 := fmom.NewPxPyPzE(0, 0, pz, e)

	s := State{
		Kinetic:  T,
		Mass:     mass,
		Energy:   p4.E(),
		Momentum: p4.P(),
	}
	s.Beta = s.Momentum / s.Energy
	s.Gamma = 1 / math.Sqrt(1-s.Beta*s.Beta)
	s.BetaGamma = s.Beta * s.Gamma
	return s, nil
}
