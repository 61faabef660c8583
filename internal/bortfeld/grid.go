package bortfeld

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"bragg-dose-lab/internal/domain"
)

// Grid returns n equally spaced depths from lo to hi inclusive.
func Grid(lo, hi float64, n int) ([]float64, error) {
	if n < 2 || !isFinite(lo) || !isFinite(hi) || hi <= lo {
		return nil, fmt.Errorf("grid [%g, %g] with %d points: %w", lo, hi, n, domain.ErrInvalidArgument)
	}
	return floats.Span(make([]float64, n), lo, hi), nil
}
