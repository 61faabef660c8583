package api

import (
	"math"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/fit"
)

// Params is the JSON form of domain.FitParameters.
type Params struct {
	Phi0    float64 `json:"phi0"`
	Epsilon float64 `json:"epsilon"`
	R0      float64 `json:"r0"`
	Beta    float64 `json:"beta"`
	Sigma   float64 `json:"sigma"`
}

func (p Params) domain() domain.FitParameters {
	return domain.FitParameters{Phi0: p.Phi0, Epsilon: p.Epsilon, R0: p.R0, Beta: p.Beta, Sigma: p.Sigma}
}

func paramsFrom(fp domain.FitParameters) Params {
	return Params{Phi0: fp.Phi0, Epsilon: fp.Epsilon, R0: fp.R0, Beta: fp.Beta, Sigma: fp.Sigma}
}

// Sample is one depth-dose pair.
type Sample struct {
	Depth float64 `json:"depth"`
	Dose  float64 `json:"dose"`
}

// EvaluateRequest is the body of POST /api/evaluate.
type EvaluateRequest struct {
	Depths     []float64 `json:"depths"`
	Params     Params    `json:"params"`
	Volumetric bool      `json:"volumetric,omitempty"` // dose per effective volume
}

// EvaluateResponse answers POST /api/evaluate.
type EvaluateResponse struct {
	Doses   []float64 `json:"doses"`
	Regions []string  `json:"regions"`
}

// CurveRequest is the body of POST /api/curve. Zero grid fields select
// the configured overlay.
type CurveRequest struct {
	Params Params  `json:"params"`
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
	Points int     `json:"points,omitempty"`
}

// CurveResponse answers POST /api/curve.
type CurveResponse struct {
	Points []Sample `json:"points"`
}

// BoundsJSON is the JSON form of fit.Bounds.
type BoundsJSON struct {
	Lower Params `json:"lower"`
	Upper Params `json:"upper"`
}

func (b BoundsJSON) bounds() fit.Bounds {
	return fit.Bounds{Lower: b.Lower.domain(), Upper: b.Upper.domain()}
}

// FitRequest is the body of POST /api/fit. Seed and bounds default to the
// seeding rule for the particle.
type FitRequest struct {
	Samples  []Sample    `json:"samples"`
	Particle string      `json:"particle,omitempty"`
	Seed     *Params     `json:"seed,omitempty"`
	Bounds   *BoundsJSON `json:"bounds,omitempty"`
}

// FitResponse answers POST /api/fit. Non-finite numbers are null.
type FitResponse struct {
	ID          string       `json:"id"`
	Params      Params       `json:"params"`
	Seed        Params       `json:"seed"`
	Bounds      BoundsJSON   `json:"bounds"`
	StdErr      []*float64   `json:"stderr"`
	Covariance  [][]*float64 `json:"covariance"`
	Cost        float64      `json:"cost"`
	Iterations  int          `json:"iterations"`
	Evaluations int          `json:"evaluations"`
	Converged   bool         `json:"converged"`
	Error       string       `json:"error,omitempty"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func fitResponse(id string, res *domain.FitResult, seed domain.FitParameters, b fit.Bounds) FitResponse {
	out := FitResponse{
		ID:          id,
		Params:      paramsFrom(res.Params),
		Seed:        paramsFrom(seed),
		Bounds:      BoundsJSON{Lower: paramsFrom(b.Lower), Upper: paramsFrom(b.Upper)},
		Cost:        res.Cost,
		Iterations:  res.Iterations,
		Evaluations: res.Evaluations,
		Converged:   res.Converged,
	}
	out.StdErr = make([]*float64, len(res.StdErr))
	for i, e := range res.StdErr {
		out.StdErr[i] = finiteOrNil(e)
	}
	out.Covariance = make([][]*float64, len(res.Covariance))
	for i, row := range res.Covariance {
		out.Covariance[i] = make([]*float64, len(row))
		for j, v := range row {
			out.Covariance[i][j] = finiteOrNil(v)
		}
	}
	return out
}
