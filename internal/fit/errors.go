package fit

import "errors"

var (
	// ErrFitDidNotConverge is returned together with the last iterate when
	// the iteration budget runs out.
	ErrFitDidNotConverge = errors.New("fit did not converge")

	// ErrInvalidModelEvaluation is returned when the model produces a
	// non-finite value during a fit. No result accompanies it.
	ErrInvalidModelEvaluation = errors.New("invalid model evaluation")

	// ErrUnknownParticle is returned for a particle without range tables.
	ErrUnknownParticle = errors.New("unknown particle")

	// ErrUnknownEnergy is returned when an energy is not in the range table.
	ErrUnknownEnergy = errors.New("unknown energy")
)
