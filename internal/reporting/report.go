package reporting

import (
	"time"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/fit"
)

// Report is the outcome of one fit run, ready for rendering.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	FitID       string
	Dataset     string
	Fingerprint string
	Particle    domain.Particle

	// Model constants and the derived factorial term
	Model         domain.ModelParameters
	FactorialTerm float64

	// Fit
	Seed     domain.FitParameters
	Bounds   fit.Bounds
	Result   *domain.FitResult // nil when the fit produced no iterate
	FitError string            // empty on success

	Quality QualitySection

	// Samples with fitted values and residuals (sorted by depth)
	Samples []SampleRow

	// Dense overlay of the fitted curve, raw and per effective volume
	Overlay []CurvePoint

	// Depth-energy coupled evaluation at the sample depths
	Series []SeriesRow
}

// QualitySection holds the post-fit checks.
type QualitySection struct {
	Checks          []CheckRow
	AllChecksPassed bool
}

// CheckRow represents one post-fit criterion.
type CheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SampleRow is one measured sample next to the fitted curve.
type SampleRow struct {
	Depth    float64
	Dose     float64
	Fitted   float64
	Residual float64 // Dose - Fitted
	Region   string
}

// CurvePoint is one point of the fitted overlay.
type CurvePoint struct {
	Depth      float64
	Dose       float64
	VolumeDose float64 // dose per effective volume; zero without a series
}

// SeriesRow is one sample of the depth-energy coupled evaluation.
type SeriesRow struct {
	Depth      float64
	Dz         float64
	Kinetic    float64
	YPlane     float64
	Volume     float64
	Dose       float64
	VolumeDose float64
}
