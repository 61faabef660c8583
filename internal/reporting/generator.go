package reporting

import (
	"fmt"
	"math"
	"sort"
	"time"

	"bragg-dose-lab/internal/bortfeld"
	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/fit"
)

// Input is everything a fit run produced.
type Input struct {
	FitID       string
	Dataset     string
	Fingerprint string
	Particle    domain.Particle
	Samples     []domain.DepthDoseSample
	Seed        domain.FitParameters
	Bounds      fit.Bounds
	Result      *domain.FitResult
	FitErr      error
	Series      []bortfeld.SeriesPoint

	// Depth-energy evaluation of the fitted curve over the overlay grid.
	OverlaySeries []bortfeld.SeriesPoint
}

// Generator builds reports against one evaluator and overlay grid.
type Generator struct {
	eval *bortfeld.Evaluator
	grid []float64
	now  func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a report generator. grid holds the overlay depths.
func NewGenerator(eval *bortfeld.Evaluator, grid []float64) *Generator {
	return &Generator{
		eval: eval,
		grid: grid,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report. Fitted values and the overlay are only
// filled when in.Result is set.
func (g *Generator) Generate(in Input) (*Report, error) {
	r := &Report{
		GeneratedAt:   g.now(),
		FitID:         in.FitID,
		Dataset:       in.Dataset,
		Fingerprint:   in.Fingerprint,
		Particle:      in.Particle,
		Model:         g.eval.Params(),
		FactorialTerm: g.eval.FactorialTerm(),
		Seed:          in.Seed,
		Bounds:        in.Bounds,
		Result:        in.Result,
	}
	if in.FitErr != nil {
		r.FitError = in.FitErr.Error()
	}

	samples, err := g.sampleRows(in.Samples, in.Result)
	if err != nil {
		return nil, err
	}
	r.Samples = samples

	if in.Result != nil {
		doses, err := g.eval.Curve(g.grid, in.Result.Params)
		if err != nil {
			return nil, fmt.Errorf("overlay: %w", err)
		}
		if in.OverlaySeries != nil && len(in.OverlaySeries) != len(g.grid) {
			return nil, fmt.Errorf("overlay series has %d points for a %d point grid", len(in.OverlaySeries), len(g.grid))
		}
		r.Overlay = make([]CurvePoint, len(g.grid))
		for i, z := range g.grid {
			r.Overlay[i] = CurvePoint{Depth: z, Dose: doses[i]}
			if in.OverlaySeries != nil {
				r.Overlay[i].VolumeDose = in.OverlaySeries[i].VolumeDose
			}
		}
	}

	r.Series = make([]SeriesRow, len(in.Series))
	for i, p := range in.Series {
		r.Series[i] = SeriesRow{
			Depth:      p.Depth,
			Dz:         p.Dz,
			Kinetic:    p.Kinetic,
			YPlane:     p.YPlane,
			Volume:     p.Volume,
			Dose:       p.Dose,
			VolumeDose: p.VolumeDose,
		}
	}

	r.Quality = qualityChecks(in)
	return r, nil
}

func (g *Generator) sampleRows(samples []domain.DepthDoseSample, res *domain.FitResult) ([]SampleRow, error) {
	rows := make([]SampleRow, len(samples))
	for i, s := range samples {
		rows[i] = SampleRow{Depth: s.Depth, Dose: s.Dose}
		if res == nil {
			continue
		}
		fitted, err := g.eval.Evaluate(s.Depth, res.Params)
		if err != nil {
			return nil, fmt.Errorf("fitted value at depth %g: %w", s.Depth, err)
		}
		rows[i].Fitted = fitted
		rows[i].Residual = s.Dose - fitted
		rows[i].Region = g.eval.Region(s.Depth, res.Params).String()
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Depth < rows[j].Depth
	})
	return rows, nil
}

func qualityChecks(in Input) QualitySection {
	var checks []CheckRow
	if in.Result == nil {
		checks = append(checks, CheckRow{Name: "Fit result", Threshold: "present", Actual: "none", Pass: false})
		return QualitySection{Checks: checks}
	}
	res := in.Result

	checks = append(checks, CheckRow{
		Name:      "Converged",
		Threshold: "true",
		Actual:    fmt.Sprintf("%t (%d iterations)", res.Converged, res.Iterations),
		Pass:      res.Converged,
	})

	checks = append(checks, CheckRow{
		Name:      "Parameters inside bounds",
		Threshold: "true",
		Actual:    fmt.Sprintf("%t", in.Bounds.Contains(res.Params)),
		Pass:      in.Bounds.Contains(res.Params),
	})

	dof := len(in.Samples) - domain.NumFitParameters
	checks = append(checks, CheckRow{
		Name:      "Degrees of freedom",
		Threshold: ">= 1",
		Actual:    fmt.Sprintf("%d", dof),
		Pass:      dof >= 1,
	})

	finite := true
	for _, e := range res.StdErr {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			finite = false
		}
	}
	checks = append(checks, CheckRow{
		Name:      "Standard errors finite",
		Threshold: "true",
		Actual:    fmt.Sprintf("%t", finite),
		Pass:      finite,
	})

	all := true
	for _, c := range checks {
		all = all && c.Pass
	}
	return QualitySection{Checks: checks, AllChecksPassed: all}
}

// ReducedChiSquare returns cost/(n-k), or +Inf without degrees of freedom.
func (r *Report) ReducedChiSquare() float64 {
	if r.Result == nil {
		return math.NaN()
	}
	dof := len(r.Samples) - domain.NumFitParameters
	if dof <= 0 {
		return math.Inf(1)
	}
	return r.Result.Cost / float64(dof)
}
