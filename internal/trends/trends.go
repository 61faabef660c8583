// Package trends tabulates the scattering spread and energy loss of a
// projectile as it slows down in a thick absorber.
package trends

import (
	"fmt"
	"math"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/physics/kinematics"
)

// Scatterer gives the lateral spread after a path length x at energy T.
type Scatterer interface {
	YPlane(x, T float64) (float64, error)
}

// StoppingPower gives the energy loss per unit length at energy T.
type StoppingPower interface {
	DEDX(T float64) (float64, error)
	ProjectileMass() float64
}

// Options configures a trend run. Zero values select defaults.
type Options struct {
	InitialEnergy float64 // T0 (MeV); Default: 200
	InitialDepth  float64 // first x (cm); Default: 0.05
	Step          float64 // dx (cm); Default: 0.1
	FibreRadius   float64 // r (cm) for the effective area; Default: 0.1
	MaxSteps      int     // Default: 100000
}

func (o Options) withDefaults() Options {
	if o.InitialEnergy == 0 {
		o.InitialEnergy = 200
	}
	if o.InitialDepth == 0 {
		o.InitialDepth = 0.05
	}
	if o.Step == 0 {
		o.Step = 0.1
	}
	if o.FibreRadius == 0 {
		o.FibreRadius = 0.1
	}
	if o.MaxSteps == 0 {
		o.MaxSteps = 100000
	}
	return o
}

// Row is one step of the table.
type Row struct {
	X      float64 // cm
	T      float64 // kinetic energy (MeV)
	E      float64 // total energy (MeV)
	P      float64 // momentum (MeV/c)
	Gamma  float64
	Beta   float64
	YPlane float64 // lateral spread at X (cm)
	DE     float64 // energy lost over the step (MeV)
	Area   float64 // pi (r + yPlane)^2 (cm^2)
	Volume float64 // Area * dx (cm^3)
}

// Run steps the kinetic energy down from the initial energy by
// dE/dx * dx per step until it is exhausted or MaxSteps rows are emitted.
func Run(scatter Scatterer, stopping StoppingPower, opts Options) ([]Row, error) {
	opts = opts.withDefaults()
	if opts.Step <= 0 || opts.InitialDepth <= 0 || opts.InitialEnergy <= 0 || opts.FibreRadius < 0 {
		return nil, fmt.Errorf("trend options %+v: %w", opts, domain.ErrInvalidArgument)
	}

	var rows []Row
	x, T := opts.InitialDepth, opts.InitialEnergy
	for T > 0 && len(rows) < opts.MaxSteps {
		y, err := scatter.YPlane(x, T)
		if err != nil {
			return nil, fmt.Errorf("step x=%g T=%g: %w", x, T, err)
		}
		dedx, err := stopping.DEDX(T)
		if err != nil {
			return nil, fmt.Errorf("step x=%g T=%g: %w", x, T, err)
		}
		kin, err := kinematics.FromKinetic(T, stopping.ProjectileMass())
		if err != nil {
			return nil, err
		}

		r := opts.FibreRadius + y
		area := math.Pi * r * r
		row := Row{
			X:      x,
			T:      T,
			E:      kin.Energy,
			P:      kin.Momentum,
			Gamma:  kin.Gamma,
			Beta:   kin.Beta,
			YPlane: y,
			DE:     dedx * opts.Step,
			Area:   area,
			Volume: area * opts.Step,
		}
		rows = append(rows, row)

		x += opts.Step
		T -= row.DE
	}
	return rows, nil
}
