package bortfeld

import (
	"fmt"
	"log"
	"math"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/physics/kinematics"
)

const (
	// DefaultFibreRadius is the detector fibre radius (cm) used for the
	// effective volume.
	DefaultFibreRadius = 0.1
	// DefaultInitialDepth is the depth (cm) assumed before the first sample.
	DefaultInitialDepth = -0.03003003003003
	// DefaultEnergyFloor is the kinetic energy (MeV) below which the
	// lateral spread is no longer recomputed.
	DefaultEnergyFloor = 115.0
)

// YPlaner provides the lateral spread of the beam after a slab.
type YPlaner interface {
	YPlane(dx, T float64) (float64, error)
	ProjectileMass() float64
}

// SeriesOptions configures a SeriesEvaluator. Nil fields select defaults;
// a set field is used as given, zero included.
type SeriesOptions struct {
	FibreRadius  *float64    // Default: 0.1 cm
	InitialDepth *float64    // Default: -0.03003003003003 cm
	EnergyFloor  *float64    // Default: 115 MeV
	Logger       *log.Logger // Per-sample diagnostics; nil disables them
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// DepthEnergyState carries the last valid kinetic energy and lateral
// spread from one sample to the next. A fresh state is used for every
// series.
type DepthEnergyState struct {
	PrevDepth float64 // depth of the previous sample (cm)
	Kinetic   float64 // last valid back-computed kinetic energy (MeV)
	YPlane    float64 // last valid lateral spread (cm)
}

// SeriesPoint is one sample of a depth-energy coupled evaluation.
type SeriesPoint struct {
	Depth      float64 // z (cm)
	Dz         float64 // z - previous z (cm)
	Region     Region
	Dose       float64 // dose per unit depth (MeV/cm)
	Kinetic    float64 // T used for this sample (MeV)
	YPlane     float64 // lateral spread used for this sample (cm)
	Volume     float64 // effective volume dV (cm^3)
	VolumeDose float64 // Dose / Volume
	Kinematics kinematics.State
}

// SeriesEvaluator converts the depth dose of an Evaluator into a dose per
// effective volume, widening the beam cross-section by the scattering
// spread accumulated at each step.
type SeriesEvaluator struct {
	eval         *Evaluator
	scatter      YPlaner
	fibreRadius  float64
	initialDepth float64
	energyFloor  float64
	logger       *log.Logger
}

// NewSeriesEvaluator creates a SeriesEvaluator.
func NewSeriesEvaluator(eval *Evaluator, scatter YPlaner, opts SeriesOptions) (*SeriesEvaluator, error) {
	if eval == nil || scatter == nil {
		return nil, fmt.Errorf("series evaluator needs an evaluator and a scattering model: %w", domain.ErrInvalidArgument)
	}

	// A zero radius leaves dV = 0 until the first lateral spread.
	fibreRadius := valueOr(opts.FibreRadius, DefaultFibreRadius)
	if fibreRadius <= 0 || !isFinite(fibreRadius) {
		return nil, fmt.Errorf("fibre radius %g: %w", fibreRadius, domain.ErrInvalidArgument)
	}

	initialDepth := valueOr(opts.InitialDepth, DefaultInitialDepth)
	if !isFinite(initialDepth) {
		return nil, fmt.Errorf("initial depth %g: %w", initialDepth, domain.ErrInvalidArgument)
	}

	energyFloor := valueOr(opts.EnergyFloor, DefaultEnergyFloor)
	if energyFloor < 0 || !isFinite(energyFloor) {
		return nil, fmt.Errorf("energy floor %g: %w", energyFloor, domain.ErrInvalidArgument)
	}

	return &SeriesEvaluator{
		eval:         eval,
		scatter:      scatter,
		fibreRadius:  fibreRadius,
		initialDepth: initialDepth,
		energyFloor:  energyFloor,
		logger:       opts.Logger,
	}, nil
}

// NewState returns the state a series starts from: the configured initial
// depth, T = 0 and no lateral spread.
func (s *SeriesEvaluator) NewState() DepthEnergyState {
	return DepthEnergyState{PrevDepth: s.initialDepth}
}

// EvaluateSeries evaluates the depths in order. Depths must be strictly
// increasing and greater than the initial depth.
func (s *SeriesEvaluator) EvaluateSeries(zs []float64, fp domain.FitParameters) ([]SeriesPoint, error) {
	state := s.NewState()
	out := make([]SeriesPoint, 0, len(zs))
	for i, z := range zs {
		pt, err := s.Step(&state, z, fp)
		if err != nil {
			return nil, fmt.Errorf("depth[%d]=%g: %w", i, z, err)
		}
		out = append(out, pt)
	}
	return out, nil
}

// VolumeDoses is EvaluateSeries reduced to the dose per effective volume.
func (s *SeriesEvaluator) VolumeDoses(zs []float64, fp domain.FitParameters) ([]float64, error) {
	pts, err := s.EvaluateSeries(zs, fp)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(pts))
	for i, pt := range pts {
		out[i] = pt.VolumeDose
	}
	return out, nil
}

// Step evaluates one depth and advances state. On error state is left
// unchanged.
func (s *SeriesEvaluator) Step(state *DepthEnergyState, z float64, fp domain.FitParameters) (SeriesPoint, error) {
	dz := z - state.PrevDepth
	if dz <= 0 || math.IsNaN(dz) {
		return SeriesPoint{}, fmt.Errorf("depth %g does not follow %g: %w", z, state.PrevDepth, domain.ErrInvalidArgument)
	}

	dose, err := s.eval.Evaluate(z, fp)
	if err != nil {
		return SeriesPoint{}, err
	}

	// Past r0 the range-energy relation has no inverse; keep the last T.
	kinetic := state.Kinetic
	if fp.R0-z > 0 {
		kinetic = math.Pow((fp.R0-z)/s.eval.params.Alpha, s.eval.invP)
	}

	yPlane := state.YPlane
	if kinetic > s.energyFloor {
		yPlane, err = s.scatter.YPlane(dz, kinetic)
		if err != nil {
			return SeriesPoint{}, fmt.Errorf("lateral spread: %w", err)
		}
	}

	r := s.fibreRadius + yPlane
	dv := math.Pi * r * r * dz

	kin, err := kinematics.FromKinetic(kinetic, s.scatter.ProjectileMass())
	if err != nil {
		return SeriesPoint{}, err
	}

	pt := SeriesPoint{
		Depth:      z,
		Dz:         dz,
		Region:     s.eval.Region(z, fp),
		Dose:       dose,
		Kinetic:    kinetic,
		YPlane:     yPlane,
		Volume:     dv,
		VolumeDose: dose / dv,
		Kinematics: kin,
	}
	*state = DepthEnergyState{PrevDepth: z, Kinetic: kinetic, YPlane: yPlane}

	if s.logger != nil {
		s.logger.Printf("z=%.4f dz=%.4f T=%.3f yPlane=%.5f dV=%.5g dose=%.5g dose/dV=%.5g E=%.3f p=%.3f beta=%.5f gamma=%.5f betagamma=%.5f",
			pt.Depth, pt.Dz, pt.Kinetic, pt.YPlane, pt.Volume, pt.Dose, pt.VolumeDose,
			kin.Energy, kin.Momentum, kin.Beta, kin.Gamma, kin.BetaGamma)
	}
	return pt, nil
}
