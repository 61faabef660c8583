package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bragg-dose-lab/internal/domain"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, domain.ParticleProton, cfg.Particle())
	assert.Equal(t, 0.1, cfg.Detector.FibreRadius)
	assert.Equal(t, 0.0125, cfg.Detector.ChordRadius)
	assert.Equal(t, -0.03003003003003, cfg.Series.InitialDepth)
	assert.Equal(t, 115.0, cfg.Series.EnergyFloor)
	assert.Equal(t, 200, cfg.Fit.MaxIterations)
	assert.Equal(t, 1000, cfg.Overlay.Points)
}

func TestLoad_OverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[analysis]
particle = "carbon"
dataset = "run7.dat"

[detector]
events = 5000

[fit]
max_iterations = 50
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, domain.ParticleCarbon, cfg.Particle())
	assert.Equal(t, "run7.dat", cfg.Analysis.Dataset)
	assert.Equal(t, 5000, cfg.Detector.Events)
	assert.Equal(t, 50, cfg.Fit.MaxIterations)
	// untouched keys keep defaults
	assert.Equal(t, 0.1, cfg.Detector.FibreRadius)
	assert.Equal(t, 1e-10, cfg.Fit.FTol)
	assert.Equal(t, "BraggParameters.csv", cfg.Analysis.ParameterSet)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.toml")
	require.NoError(t, os.WriteFile(path, []byte("[fit]\nmax_iter = 3\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fit.max_iter")
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Analysis.Particle = "muon"
	cfg.Detector.Events = 0
	cfg.Fit.MaxIterations = 0
	cfg.Overlay.Points = 1

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 4)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestValidate_UnknownEnergy(t *testing.T) {
	_, err := Parse("[analysis]\nenergy = 100.0\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis.energy")

	cfg, err := Parse("[analysis]\nenergy = 159.0\n")
	require.NoError(t, err)
	assert.Equal(t, 159.0, cfg.Analysis.Energy)
}

func TestWrite_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().Write(&buf))

	cfg, err := Parse(buf.String())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestOptionMappings(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 0.6, cfg.SeedOptions().RangeOffset)
	assert.Equal(t, 200, cfg.FitOptions().MaxIterations)
	assert.Equal(t, 0.1, *cfg.SeriesOptions().FibreRadius)
	assert.Equal(t, 10000, cfg.HistogramOptions().Events)
	assert.Equal(t, 0.0125, *cfg.HistogramOptions().ChordRadius)
	assert.Equal(t, 0.1, cfg.TrendOptions().FibreRadius)
}

func TestSeriesOptions_ZeroValuesPassThrough(t *testing.T) {
	cfg, err := Parse("[series]\ninitial_depth = 0.0\nenergy_floor = 0.0\n[overlay]\nmin = 0.01\n")
	require.NoError(t, err)

	opts := cfg.SeriesOptions()
	require.NotNil(t, opts.InitialDepth)
	require.NotNil(t, opts.EnergyFloor)
	assert.Equal(t, 0.0, *opts.InitialDepth)
	assert.Equal(t, 0.0, *opts.EnergyFloor)
	assert.Equal(t, 0.1, *opts.FibreRadius)
}

func TestValidate_InitialDepthBelowOverlay(t *testing.T) {
	_, err := Parse("[series]\ninitial_depth = 0.0\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "series.initial_depth")
}
