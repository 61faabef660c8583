// Package fit fits the analytic Bragg curve to a measured depth-dose series
// by bounded nonlinear least squares.
package fit

import (
	"errors"
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"bragg-dose-lab/internal/domain"
)

const (
	maxLambda = 1e20
	minLambda = 1e-15
)

// Model is the curve being fitted.
type Model interface {
	Evaluate(z float64, fp domain.FitParameters) (float64, error)
}

// Options configures a Fitter. Zero values select defaults.
type Options struct {
	MaxIterations int         // Default: 200
	FTol          float64     // relative cost reduction, Default: 1e-10
	XTol          float64     // relative step size, Default: 1e-10
	GTol          float64     // projected gradient, Default: 1e-12
	InitialLambda float64     // Default: 1e-3
	Logger        *log.Logger // Default: log.Default()
}

// Fitter runs a projected Levenberg-Marquardt minimisation of the sum of
// squared residuals. Steps are clipped to the bounds and parameters held
// at an active bound are frozen for that step.
type Fitter struct {
	model         Model
	maxIterations int
	ftol          float64
	xtol          float64
	gtol          float64
	lambda0       float64
	logger        *log.Logger
}

// NewFitter creates a Fitter for model.
func NewFitter(model Model, opts Options) *Fitter {
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 200
	}
	ftol := opts.FTol
	if ftol == 0 {
		ftol = 1e-10
	}
	xtol := opts.XTol
	if xtol == 0 {
		xtol = 1e-10
	}
	gtol := opts.GTol
	if gtol == 0 {
		gtol = 1e-12
	}
	lambda0 := opts.InitialLambda
	if lambda0 == 0 {
		lambda0 = 1e-3
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Fitter{
		model:         model,
		maxIterations: maxIter,
		ftol:          ftol,
		xtol:          xtol,
		gtol:          gtol,
		lambda0:       lambda0,
		logger:        logger,
	}
}

// problem is the state of one fit.
type problem struct {
	model   Model
	depths  []float64
	doses   []float64
	evals   int
	evalErr error
}

// residuals writes model(z_i) - dose_i into r.
func (p *problem) residuals(r, x []float64) error {
	p.evals++
	fp := domain.FitParametersFromVector(x)
	for i, z := range p.depths {
		v, err := p.model.Evaluate(z, fp)
		if err != nil {
			return fmt.Errorf("%w at depth %g: %w", ErrInvalidModelEvaluation, z, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: dose %g at depth %g", ErrInvalidModelEvaluation, v, z)
		}
		r[i] = v - p.doses[i]
	}
	return nil
}

// jacobian fills J with central differences of the residuals at x.
func (p *problem) jacobian(J *mat.Dense, x []float64) error {
	p.evalErr = nil
	fd.Jacobian(J, func(y, x []float64) {
		if p.evalErr != nil {
			return
		}
		p.evalErr = p.residuals(y, x)
	}, x, &fd.JacobianSettings{Formula: fd.Central})
	return p.evalErr
}

// Fit minimises the squared residuals between the model and samples,
// starting from seed clamped into bounds.
//
// When the iteration budget runs out, the last iterate is returned along
// with ErrFitDidNotConverge. A non-finite model value aborts the fit with
// ErrInvalidModelEvaluation and a nil result.
func (f *Fitter) Fit(samples []domain.DepthDoseSample, seed domain.FitParameters, bounds Bounds) (*domain.FitResult, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("fit of empty series: %w", domain.ErrInvalidArgument)
	}
	for _, s := range samples {
		if math.IsNaN(s.Depth) || math.IsInf(s.Depth, 0) || math.IsNaN(s.Dose) || math.IsInf(s.Dose, 0) {
			return nil, fmt.Errorf("sample (%g, %g): %w", s.Depth, s.Dose, domain.ErrInvalidArgument)
		}
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	n, k := len(samples), domain.NumFitParameters
	p := &problem{
		model:  f.model,
		depths: domain.Depths(samples),
		doses:  domain.Doses(samples),
	}
	lo, hi := bounds.Lower.Vector(), bounds.Upper.Vector()

	x := seed.Vector()
	bounds.clampVec(x)

	r := make([]float64, n)
	if err := p.residuals(r, x); err != nil {
		return nil, err
	}
	cost := floats.Dot(r, r)

	J := mat.NewDense(n, k, nil)
	var (
		jtj    mat.SymDense
		grad   = mat.NewVecDense(k, nil)
		step   = mat.NewVecDense(k, nil)
		xNew   = make([]float64, k)
		rNew   = make([]float64, n)
		lambda = f.lambda0

		converged bool
		reason    string
		iter      int
	)

	for !converged && iter < f.maxIterations {
		if cost == 0 {
			converged, reason = true, "zero cost"
			break
		}
		iter++
		if err := p.jacobian(J, x); err != nil {
			return nil, err
		}
		jtj.SymOuterK(1, J.T())
		grad.MulVec(J.T(), mat.NewVecDense(n, r))

		// Freeze parameters sitting on a bound the gradient pushes against.
		active := make([]bool, k)
		gmax := 0.0
		for i := 0; i < k; i++ {
			g := grad.AtVec(i)
			if (x[i] <= lo[i] && g > 0) || (x[i] >= hi[i] && g < 0) {
				active[i] = true
				continue
			}
			gmax = math.Max(gmax, math.Abs(g))
		}
		if gmax <= f.gtol {
			converged, reason = true, "gradient tolerance"
			break
		}

		for {
			a := mat.NewSymDense(k, nil)
			rhs := mat.NewVecDense(k, nil)
			for i := 0; i < k; i++ {
				if active[i] {
					a.SetSym(i, i, 1)
					continue
				}
				for j := i; j < k; j++ {
					if active[j] {
						continue
					}
					a.SetSym(i, j, jtj.At(i, j))
				}
				a.SetSym(i, i, jtj.At(i, i)+lambda*math.Max(jtj.At(i, i), 1e-12))
				rhs.SetVec(i, -grad.AtVec(i))
			}

			var chol mat.Cholesky
			if !chol.Factorize(a) {
				lambda *= 10
				if lambda > maxLambda {
					converged, reason = true, "damping limit"
					break
				}
				continue
			}
			if err := chol.SolveVecTo(step, rhs); err != nil {
				var cond mat.Condition
				if !errors.As(err, &cond) {
					return nil, fmt.Errorf("solve normal equations: %w", err)
				}
			}

			for i := range x {
				xNew[i] = x[i] + step.AtVec(i)
			}
			bounds.clampVec(xNew)

			dx := 0.0
			for i := range x {
				dx = math.Max(dx, math.Abs(xNew[i]-x[i])/(math.Abs(x[i])+f.xtol))
			}
			if dx <= f.xtol {
				converged, reason = true, "step tolerance"
				break
			}

			if err := p.residuals(rNew, xNew); err != nil {
				return nil, err
			}
			costNew := floats.Dot(rNew, rNew)
			if costNew < cost {
				reduction := (cost - costNew) / cost
				copy(x, xNew)
				copy(r, rNew)
				cost = costNew
				lambda = math.Max(lambda/10, minLambda)
				if reduction <= f.ftol {
					converged, reason = true, "cost tolerance"
				}
				break
			}

			lambda *= 10
			if lambda > maxLambda {
				converged, reason = true, "damping limit"
				break
			}
		}
	}
	result := &domain.FitResult{
		Params:     domain.FitParametersFromVector(x),
		Cost:       cost,
		Iterations: iter,
		Converged:  converged,
	}
	cov, err := f.covariance(p, J, x, cost)
	if err != nil {
		return nil, err
	}
	result.Covariance = cov
	for i := 0; i < k; i++ {
		result.StdErr[i] = math.Sqrt(cov[i][i])
	}
	result.Evaluations = p.evals

	if !converged {
		f.logger.Printf("no convergence after %d iterations: cost=%g r0=%.4f sigma=%.4f",
			iter, cost, x[2], x[4])
		return result, fmt.Errorf("%d iterations, cost %g: %w", iter, cost, ErrFitDidNotConverge)
	}
	f.logger.Printf("converged (%s) after %d iterations: cost=%g r0=%.4f sigma=%.4f",
		reason, iter, cost, x[2], x[4])
	return result, nil
}

// covariance estimates the parameter covariance s^2 (J^T J)^+ from the
// Jacobian at x, with s^2 = cost/(n-k). Singular directions are dropped.
// With no degrees of freedom every entry is +Inf.
func (f *Fitter) covariance(p *problem, J *mat.Dense, x []float64, cost float64) ([][]float64, error) {
	n, k := J.Dims()
	cov := make([][]float64, k)
	for i := range cov {
		cov[i] = make([]float64, k)
	}

	if n <= k {
		for i := range cov {
			for j := range cov[i] {
				cov[i][j] = math.Inf(1)
			}
		}
		return cov, nil
	}

	if err := p.jacobian(J, x); err != nil {
		return nil, err
	}

	var svd mat.SVD
	if !svd.Factorize(J, mat.SVDThin) {
		for i := range cov {
			for j := range cov[i] {
				cov[i][j] = math.Inf(1)
			}
		}
		return cov, nil
	}
	values := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)

	threshold := 2.220446049250313e-16 * float64(n) * values[0]
	s2 := cost / float64(n-k)
	for l, s := range values {
		if s <= threshold {
			continue
		}
		w := s2 / (s * s)
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				cov[i][j] += w * v.At(i, l) * v.At(j, l)
			}
		}
	}
	return cov, nil
}
