// Package histogram turns raw detector hits into a depth-dose series.
package histogram

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/storage"
)

// ErrNoHits is returned when there is nothing to aggregate.
var ErrNoHits = errors.New("no hits available for aggregation")

// DefaultChordRadius is the fibre radius (cm) of a 250 micron fibre.
const DefaultChordRadius = 0.0125

// Options configures the dose normalisation.
type Options struct {
	Events      int      // number of simulated primaries
	ChordRadius *float64 // fibre radius (cm) for the average chord; nil selects 0.0125
}

// AverageChord returns the mean chord 4r/pi of a circle of radius r,
// for tracks crossing the fibre close to normal incidence.
func AverageChord(radius float64) float64 {
	return 4 * radius / math.Pi
}

// Aggregate bins hits by station depth. Depth is converted from mm to cm
// and each deposit is normalised to MeV/cm per primary. The series is
// ordered by depth.
func Aggregate(hits []*domain.Hit, opts Options) ([]domain.DepthDoseSample, error) {
	if opts.Events <= 0 {
		return nil, fmt.Errorf("events=%d must be positive: %w", opts.Events, domain.ErrInvalidArgument)
	}
	radius := DefaultChordRadius
	if opts.ChordRadius != nil {
		radius = *opts.ChordRadius
	}
	if radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("chord radius %g: %w", radius, domain.ErrInvalidArgument)
	}
	if len(hits) == 0 {
		return nil, ErrNoHits
	}

	norm := float64(opts.Events) * AverageChord(radius)

	// Keyed by the raw depth so equal stations always share a bin.
	bins := make(map[float64]int)
	var out []domain.DepthDoseSample
	for _, h := range hits {
		if h == nil {
			continue
		}
		if math.IsNaN(h.Depth) || math.IsInf(h.Depth, 0) || math.IsNaN(h.EnergyDeposit) || math.IsInf(h.EnergyDeposit, 0) {
			return nil, fmt.Errorf("hit station=%d event=%d: non-finite value: %w", h.Station, h.Event, domain.ErrInvalidArgument)
		}
		dose := h.EnergyDeposit / norm
		if i, ok := bins[h.Depth]; ok {
			out[i].Dose += dose
			continue
		}
		bins[h.Depth] = len(out)
		out = append(out, domain.DepthDoseSample{Depth: h.Depth / 10, Dose: dose})
	}
	if len(out) == 0 {
		return nil, ErrNoHits
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Depth < out[j].Depth })
	return out, nil
}

// Aggregator loads hits from a source and aggregates them.
type Aggregator struct {
	hits storage.HitSource
	opts Options
}

// NewAggregator creates a new Aggregator.
func NewAggregator(hits storage.HitSource, opts Options) *Aggregator {
	return &Aggregator{hits: hits, opts: opts}
}

// Series loads the dataset and returns its depth-dose series.
func (a *Aggregator) Series(ctx context.Context, dataset string) ([]domain.DepthDoseSample, error) {
	hits, err := a.hits.Hits(ctx, dataset)
	if err != nil {
		return nil, fmt.Errorf("load hits: %w", err)
	}
	samples, err := Aggregate(hits, a.opts)
	if err != nil {
		return nil, fmt.Errorf("aggregate %q: %w", dataset, err)
	}
	return samples, nil
}
