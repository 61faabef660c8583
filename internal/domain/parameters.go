package domain

import (
	"fmt"
	"math"
)

// ParameterRow is one row of a flat parameter table.
type ParameterRow struct {
	Label string  // free-text label, matched by substring
	Value float64 // numeric value
	Unit  string  // optional unit, empty when absent
}

// ModelParameters holds the constants of the Bortfeld range-energy model.
// Loaded once per run and never modified afterwards.
type ModelParameters struct {
	P         float64 // exponent of the range-energy relation
	Gamma     float64 // fraction of energy released in nonelastic nuclear interactions
	Alpha     float64 // proportionality factor (cm MeV^-p)
	AlphaUnit string
	Rho       float64 // density (g/cm^3)
	RhoUnit   string
}

// Validate checks that all parameters are finite, that p, alpha and rho are
// positive and that gamma lies in [0, 1).
func (m ModelParameters) Validate() error {
	for _, v := range []float64{m.P, m.Gamma, m.Alpha, m.Rho} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("model parameters must be finite: %w", ErrInvalidArgument)
		}
	}
	if m.P <= 0 || m.Alpha <= 0 || m.Rho <= 0 {
		return fmt.Errorf("p=%g alpha=%g rho=%g must be positive: %w", m.P, m.Alpha, m.Rho, ErrInvalidArgument)
	}
	if m.Gamma < 0 || m.Gamma >= 1 {
		return fmt.Errorf("gamma=%g must be in [0,1): %w", m.Gamma, ErrInvalidArgument)
	}
	return nil
}

// MCSParameters holds the multiple Coulomb scattering constants.
type MCSParameters struct {
	IonisationEnergy     float64
	IonisationEnergyUnit string
	ChargeNumber         float64 // projectile charge number z
	X0                   float64 // radiation length in g/cm^2
	X0Unit               string
	Rho                  float64 // density (g/cm^3)
	RhoUnit              string
	ProjectileMass       float64 // MeV
	ProjectileMassUnit   string
}

// Eta1 returns IonE * z / (2 * sqrt(X0/rho)).
func (m MCSParameters) Eta1() float64 {
	return m.IonisationEnergy * m.ChargeNumber / (2 * math.Sqrt(m.X0/m.Rho))
}

// Alpha1 returns z^2 * Mp / (2 * X0/rho).
func (m MCSParameters) Alpha1() float64 {
	return m.ChargeNumber * m.ChargeNumber * m.ProjectileMass / (2 * m.X0 / m.Rho)
}

// RadiationLength returns X0 * rho.
func (m MCSParameters) RadiationLength() float64 {
	return m.X0 * m.Rho
}

// StoppingParameters holds the constants of the simplified dE/dx relation.
type StoppingParameters struct {
	K                  float64 // coefficient for dE/dx
	KUnit              string
	Z                  float64 // effective atomic number <Z>
	A                  float64 // effective mass number <A>
	ChargeNumber       float64 // projectile charge number z
	ProjectileMass     float64 // MeV
	ProjectileMassUnit string
}

// Eta1 returns K * z^2 * Z/A.
func (s StoppingParameters) Eta1() float64 {
	return s.K * s.ChargeNumber * s.ChargeNumber * s.Z / s.A
}
