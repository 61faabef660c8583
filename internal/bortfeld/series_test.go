package bortfeld

import (
	"bytes"
	"errors"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/physics/mcs"
)

type spreadCall struct {
	dx, T float64
}

// recordingSpread returns a spread proportional to dx/T and records calls.
type recordingSpread struct {
	calls []spreadCall
	err   error
}

func (r *recordingSpread) YPlane(dx, T float64) (float64, error) {
	r.calls = append(r.calls, spreadCall{dx, T})
	if r.err != nil {
		return 0, r.err
	}
	return dx / T, nil
}

func (r *recordingSpread) ProjectileMass() float64 { return 938.272 }

func ptr(v float64) *float64 { return &v }

func evenDepths(step, last float64) []float64 {
	var zs []float64
	for z := 0.0; z <= last+1e-9; z += step {
		zs = append(zs, z)
	}
	return zs
}

func TestEvaluateSeries_FirstSample(t *testing.T) {
	spread := &recordingSpread{}
	s, err := NewSeriesEvaluator(newEvaluator(t), spread, SeriesOptions{})
	require.NoError(t, err)

	fp := referenceParams()
	pts, err := s.EvaluateSeries([]float64{0}, fp)
	require.NoError(t, err)
	require.Len(t, pts, 1)

	pt := pts[0]
	wantT := math.Pow(fp.R0/0.0022, 1/1.77)
	assert.InEpsilon(t, wantT, pt.Kinetic, 1e-12)
	assert.InDelta(t, 0.03003003003003, pt.Dz, 1e-15)

	require.Len(t, spread.calls, 1)
	assert.InDelta(t, pt.Dz, spread.calls[0].dx, 1e-15)
	assert.InEpsilon(t, wantT, spread.calls[0].T, 1e-12)

	r := DefaultFibreRadius + pt.YPlane
	assert.InEpsilon(t, math.Pi*r*r*pt.Dz, pt.Volume, 1e-12)
	assert.InEpsilon(t, pt.Dose/pt.Volume, pt.VolumeDose, 1e-12)
	assert.InEpsilon(t, 938.272+wantT, pt.Kinematics.Energy, 1e-12)
}

func TestEvaluateSeries_PostPeakFallback(t *testing.T) {
	spread := &recordingSpread{}
	s, err := NewSeriesEvaluator(newEvaluator(t), spread, SeriesOptions{})
	require.NoError(t, err)

	fp := referenceParams()
	zs := evenDepths(2, 20)
	pts, err := s.EvaluateSeries(zs, fp)
	require.NoError(t, err)
	require.Len(t, pts, len(zs))

	var lastValid SeriesPoint
	for _, pt := range pts {
		if pt.Depth < fp.R0 {
			assert.InEpsilon(t, math.Pow((fp.R0-pt.Depth)/0.0022, 1/1.77), pt.Kinetic, 1e-12)
			lastValid = pt
			continue
		}
		assert.Equal(t, lastValid.Kinetic, pt.Kinetic, "z=%g", pt.Depth)
		assert.Equal(t, lastValid.YPlane, pt.YPlane, "z=%g", pt.Depth)
		assert.False(t, math.IsNaN(pt.VolumeDose) || math.IsInf(pt.VolumeDose, 0))
	}

	// Only samples above the energy floor recompute the spread
	// (T > 115 MeV holds for z < 6.2 cm here).
	for _, c := range spread.calls {
		assert.Greater(t, c.T, DefaultEnergyFloor)
	}
	assert.Len(t, spread.calls, 4)
	for _, pt := range pts[4:] {
		assert.Equal(t, pts[3].YPlane, pt.YPlane, "z=%g", pt.Depth)
	}

	// beyond r0 + 5 sigma the dose vanishes
	assert.Equal(t, 0.0, pts[len(pts)-1].VolumeDose)
}

func TestEvaluateSeries_RejectsNonIncreasingDepths(t *testing.T) {
	s, err := NewSeriesEvaluator(newEvaluator(t), &recordingSpread{}, SeriesOptions{})
	require.NoError(t, err)

	_, err = s.EvaluateSeries([]float64{0, 2, 2}, referenceParams())
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = s.EvaluateSeries([]float64{3, 1}, referenceParams())
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestEvaluateSeries_SpreadError(t *testing.T) {
	boom := errors.New("boom")
	s, err := NewSeriesEvaluator(newEvaluator(t), &recordingSpread{err: boom}, SeriesOptions{})
	require.NoError(t, err)

	_, err = s.EvaluateSeries([]float64{0, 1}, referenceParams())
	assert.ErrorIs(t, err, boom)
}

func TestEvaluateSeries_StateIsFreshPerCall(t *testing.T) {
	s, err := NewSeriesEvaluator(newEvaluator(t), &recordingSpread{}, SeriesOptions{})
	require.NoError(t, err)

	fp := referenceParams()
	zs := evenDepths(1, 20)
	first, err := s.VolumeDoses(zs, fp)
	require.NoError(t, err)
	second, err := s.VolumeDoses(zs, fp)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEvaluateSeries_Options(t *testing.T) {
	spread := &recordingSpread{}
	s, err := NewSeriesEvaluator(newEvaluator(t), spread, SeriesOptions{
		FibreRadius:  ptr(0.2),
		InitialDepth: ptr(-0.5),
		EnergyFloor:  ptr(1),
	})
	require.NoError(t, err)

	pts, err := s.EvaluateSeries([]float64{0, 10}, referenceParams())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, pts[0].Dz, 1e-15)
	assert.Len(t, spread.calls, 2)

	r := 0.2 + pts[1].YPlane
	assert.InEpsilon(t, math.Pi*r*r*10, pts[1].Volume, 1e-12)
}

func TestEvaluateSeries_ZeroOptionsAreKept(t *testing.T) {
	spread := &recordingSpread{}
	s, err := NewSeriesEvaluator(newEvaluator(t), spread, SeriesOptions{
		InitialDepth: ptr(0),
		EnergyFloor:  ptr(0),
	})
	require.NoError(t, err)

	fp := referenceParams()
	pts, err := s.EvaluateSeries([]float64{0.5, 18, 19}, fp)
	require.NoError(t, err)
	assert.Equal(t, 0.5, pts[0].Dz)

	// with no floor every sample recomputes the spread, past r0 with the
	// carried T
	require.Len(t, spread.calls, 3)
	assert.Equal(t, spread.calls[0].T, spread.calls[2].T)
	assert.Equal(t, 1.0, spread.calls[2].dx)

	_, err = s.EvaluateSeries([]float64{0}, fp)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "z=0 does not follow z_prev=0")
}

func TestStep_ErrorLeavesStateUnchanged(t *testing.T) {
	fp := referenceParams()

	s, err := NewSeriesEvaluator(newEvaluator(t), &recordingSpread{}, SeriesOptions{})
	require.NoError(t, err)
	state := s.NewState()
	_, err = s.Step(&state, 1, fp)
	require.NoError(t, err)
	before := state

	_, err = s.Step(&state, 0.5, fp)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
	assert.Equal(t, before, state)

	boom := errors.New("boom")
	failing, err := NewSeriesEvaluator(newEvaluator(t), &recordingSpread{err: boom}, SeriesOptions{})
	require.NoError(t, err)
	state = failing.NewState()
	_, err = failing.Step(&state, 1, fp)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, failing.NewState(), state)
}

func TestEvaluateSeries_Diagnostics(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "[series] ", 0)

	s, err := NewSeriesEvaluator(newEvaluator(t), &recordingSpread{}, SeriesOptions{Logger: logger})
	require.NoError(t, err)

	_, err = s.EvaluateSeries([]float64{0, 5, 10}, referenceParams())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "yPlane=")
	assert.Contains(t, lines[0], "betagamma=")
}

func TestEvaluateSeries_WithScatteringModel(t *testing.T) {
	scatter, err := mcs.New(domain.MCSParameters{
		IonisationEnergy: 13.6,
		ChargeNumber:     1,
		X0:               36.08,
		Rho:              1,
		ProjectileMass:   938.272,
	})
	require.NoError(t, err)

	s, err := NewSeriesEvaluator(newEvaluator(t), scatter, SeriesOptions{})
	require.NoError(t, err)

	pts, err := s.EvaluateSeries(evenDepths(0.5, 20), referenceParams())
	require.NoError(t, err)
	for _, pt := range pts {
		assert.GreaterOrEqual(t, pt.YPlane, 0.0)
		assert.Greater(t, pt.Volume, 0.0)
	}
}

func TestNewSeriesEvaluator_Invalid(t *testing.T) {
	_, err := NewSeriesEvaluator(nil, &recordingSpread{}, SeriesOptions{})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	for name, opts := range map[string]SeriesOptions{
		"negative radius":   {FibreRadius: ptr(-1)},
		"zero radius":       {FibreRadius: ptr(0)},
		"nan initial depth": {InitialDepth: ptr(math.NaN())},
		"negative floor":    {EnergyFloor: ptr(-1)},
	} {
		_, err = NewSeriesEvaluator(newEvaluator(t), &recordingSpread{}, opts)
		assert.True(t, errors.Is(err, domain.ErrInvalidArgument), name)
	}
}
