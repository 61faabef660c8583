package specfunc

import (
	"fmt"
	"math"

	"bragg-dose-lab/internal/domain"
)

// Factorial returns x! = Γ(x+1) for real x. Negative integers are poles.
func Factorial(x float64) (float64, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("factorial of %g: %w", x, domain.ErrInvalidArgument)
	}
	if x < 0 && x == math.Trunc(x) {
		return 0, fmt.Errorf("factorial of negative integer %g: %w", x, domain.ErrInvalidArgument)
	}
	return math.Gamma(x + 1), nil
}
