package domain

// NumFitParameters is the length of the fit parameter vector.
const NumFitParameters = 5

// FitParameterNames lists the fit parameters in vector order.
var FitParameterNames = [NumFitParameters]string{"phi0", "epsilon", "r0", "beta", "sigma"}

// FitParameters are the free parameters of the Bortfeld curve.
type FitParameters struct {
	Phi0    float64 // primary fluence
	Epsilon float64 // fraction of primary fluence in the low-energy tail
	R0      float64 // range (cm)
	Beta    float64 // slope of the fluence reduction relation (cm^-1)
	Sigma   float64 // width of the Gaussian range straggling (cm)
}

// Vector returns the parameters in the order phi0, epsilon, r0, beta, sigma.
func (f FitParameters) Vector() []float64 {
	return []float64{f.Phi0, f.Epsilon, f.R0, f.Beta, f.Sigma}
}

// FitParametersFromVector is the inverse of Vector.
func FitParametersFromVector(x []float64) FitParameters {
	return FitParameters{
		Phi0:    x[0],
		Epsilon: x[1],
		R0:      x[2],
		Beta:    x[3],
		Sigma:   x[4],
	}
}

// FitResult is the outcome of a curve fit.
type FitResult struct {
	Params      FitParameters
	Covariance  [][]float64 // NumFitParameters x NumFitParameters, vector order
	StdErr      [NumFitParameters]float64
	Cost        float64 // sum of squared residuals
	Iterations  int
	Evaluations int
	Converged   bool
}
