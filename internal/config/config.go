// Package config loads the analysis configuration from TOML.
//
// Every key is optional: a file only needs the values that differ from
// Default.
package config

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/BurntSushi/toml"

	"bragg-dose-lab/internal/bortfeld"
	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/fit"
	"bragg-dose-lab/internal/histogram"
	"bragg-dose-lab/internal/trends"
)

// Config is the complete analysis configuration.
type Config struct {
	Analysis AnalysisConfig `toml:"analysis"`
	Detector DetectorConfig `toml:"detector"`
	Series   SeriesConfig   `toml:"series"`
	Fit      FitConfig      `toml:"fit"`
	Seed     SeedConfig     `toml:"seed"`
	Overlay  OverlayConfig  `toml:"overlay"`
	Trends   TrendsConfig   `toml:"trends"`
}

// AnalysisConfig selects what is analysed.
type AnalysisConfig struct {
	Particle     string  `toml:"particle"`
	Energy       float64 `toml:"energy"` // nominal MeV; 0 seeds r0 from the deepest sample
	ParameterSet string  `toml:"parameter_set"`
	Dataset      string  `toml:"dataset"`
}

// DetectorConfig describes the fibre tracker.
type DetectorConfig struct {
	FibreRadius float64 `toml:"fibre_radius"` // cm, effective volume
	ChordRadius float64 `toml:"chord_radius"` // cm, average chord
	Events      int     `toml:"events"`
}

// SeriesConfig tunes the depth-energy coupled evaluation.
type SeriesConfig struct {
	InitialDepth float64 `toml:"initial_depth"` // cm
	EnergyFloor  float64 `toml:"energy_floor"`  // MeV
}

// FitConfig tunes the least-squares fit.
type FitConfig struct {
	MaxIterations int     `toml:"max_iterations"`
	FTol          float64 `toml:"ftol"`
	XTol          float64 `toml:"xtol"`
	GTol          float64 `toml:"gtol"`
	InitialLambda float64 `toml:"initial_lambda"`
}

// SeedConfig holds the starting point and box of the fit.
type SeedConfig struct {
	Phi0            float64 `toml:"phi0"`
	Epsilon         float64 `toml:"epsilon"`
	Beta            float64 `toml:"beta"`
	RangeOffset     float64 `toml:"range_offset"`
	RangeScale      float64 `toml:"range_scale"`
	Phi0Max         float64 `toml:"phi0_max"`
	EpsilonMax      float64 `toml:"epsilon_max"`
	BetaMax         float64 `toml:"beta_max"`
	R0Below         float64 `toml:"r0_below"`
	R0Above         float64 `toml:"r0_above"`
	SigmaLowFactor  float64 `toml:"sigma_low_factor"`
	SigmaHighFactor float64 `toml:"sigma_high_factor"`
}

// OverlayConfig is the dense depth grid of the fitted curve.
type OverlayConfig struct {
	Min    float64 `toml:"min"`
	Max    float64 `toml:"max"`
	Points int     `toml:"points"`
}

// TrendsConfig drives the trend table.
type TrendsConfig struct {
	InitialEnergy float64 `toml:"initial_energy"`
	InitialDepth  float64 `toml:"initial_depth"`
	Step          float64 `toml:"step"`
	MaxSteps      int     `toml:"max_steps"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	seed := fit.DefaultSeedOptions()
	return &Config{
		Analysis: AnalysisConfig{
			Particle:     string(domain.ParticleProton),
			ParameterSet: "BraggParameters.csv",
			Dataset:      "hits.dat",
		},
		Detector: DetectorConfig{
			FibreRadius: bortfeld.DefaultFibreRadius,
			ChordRadius: histogram.DefaultChordRadius,
			Events:      10000,
		},
		Series: SeriesConfig{
			InitialDepth: bortfeld.DefaultInitialDepth,
			EnergyFloor:  bortfeld.DefaultEnergyFloor,
		},
		Fit: FitConfig{
			MaxIterations: 200,
			FTol:          1e-10,
			XTol:          1e-10,
			GTol:          1e-12,
			InitialLambda: 1e-3,
		},
		Seed: SeedConfig{
			Phi0:            seed.Phi0,
			Epsilon:         seed.Epsilon,
			Beta:            seed.Beta,
			RangeOffset:     seed.RangeOffset,
			RangeScale:      seed.RangeScale,
			Phi0Max:         seed.Phi0Max,
			EpsilonMax:      seed.EpsilonMax,
			BetaMax:         seed.BetaMax,
			R0Below:         seed.R0Below,
			R0Above:         seed.R0Above,
			SigmaLowFactor:  seed.SigmaLowFactor,
			SigmaHighFactor: seed.SigmaHighFactor,
		},
		Overlay: OverlayConfig{Min: 0, Max: 30, Points: 1000},
		Trends: TrendsConfig{
			InitialEnergy: 200,
			InitialDepth:  0.05,
			Step:          0.1,
			MaxSteps:      100000,
		},
	}
}

// Load reads a TOML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults and validates the result.
func Parse(text string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(text, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write encodes the configuration as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// ValidationError reports one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is match domain.ErrInvalidArgument.
func (e ValidationErrors) Unwrap() error {
	return domain.ErrInvalidArgument
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}
	positive := func(field string, v float64) {
		if !(v > 0) || math.IsInf(v, 0) {
			add(field, "must be a positive number, got %g", v)
		}
	}

	if !domain.Particle(c.Analysis.Particle).IsValid() {
		add("analysis.particle", "unknown particle %q", c.Analysis.Particle)
	} else if c.Analysis.Energy != 0 {
		if _, err := fit.RangeForEnergy(domain.Particle(c.Analysis.Particle), c.Analysis.Energy); err != nil {
			add("analysis.energy", "%v", err)
		}
	}

	positive("detector.fibre_radius", c.Detector.FibreRadius)
	positive("detector.chord_radius", c.Detector.ChordRadius)
	if c.Detector.Events < 1 {
		add("detector.events", "must be at least 1, got %d", c.Detector.Events)
	}

	if math.IsNaN(c.Series.InitialDepth) || math.IsInf(c.Series.InitialDepth, 0) {
		add("series.initial_depth", "must be finite")
	}
	if !(c.Series.EnergyFloor >= 0) || math.IsInf(c.Series.EnergyFloor, 0) {
		add("series.energy_floor", "must be a non-negative number, got %g", c.Series.EnergyFloor)
	}

	if c.Fit.MaxIterations < 1 {
		add("fit.max_iterations", "must be at least 1, got %d", c.Fit.MaxIterations)
	}
	positive("fit.ftol", c.Fit.FTol)
	positive("fit.xtol", c.Fit.XTol)
	positive("fit.gtol", c.Fit.GTol)
	positive("fit.initial_lambda", c.Fit.InitialLambda)

	positive("seed.range_scale", c.Seed.RangeScale)
	positive("seed.phi0_max", c.Seed.Phi0Max)
	if c.Seed.R0Below < 0 || c.Seed.R0Above < 0 {
		add("seed.r0_below", "range bound widths must not be negative")
	}
	if c.Seed.SigmaLowFactor <= 0 || c.Seed.SigmaLowFactor > c.Seed.SigmaHighFactor {
		add("seed.sigma_low_factor", "need 0 < low (%g) <= high (%g)", c.Seed.SigmaLowFactor, c.Seed.SigmaHighFactor)
	}
	if c.Seed.EpsilonMax < 0 || c.Seed.EpsilonMax >= 1 {
		add("seed.epsilon_max", "must be in [0, 1), got %g", c.Seed.EpsilonMax)
	}

	if c.Overlay.Points < 2 {
		add("overlay.points", "must be at least 2, got %d", c.Overlay.Points)
	}
	if !(c.Series.InitialDepth < c.Overlay.Min) {
		add("series.initial_depth", "must be below overlay.min (%g), got %g", c.Overlay.Min, c.Series.InitialDepth)
	}
	if !(c.Overlay.Max > c.Overlay.Min) {
		add("overlay.max", "must exceed overlay.min")
	}

	positive("trends.initial_energy", c.Trends.InitialEnergy)
	positive("trends.initial_depth", c.Trends.InitialDepth)
	positive("trends.step", c.Trends.Step)
	if c.Trends.MaxSteps < 1 {
		add("trends.max_steps", "must be at least 1, got %d", c.Trends.MaxSteps)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Particle returns the configured particle.
func (c *Config) Particle() domain.Particle {
	return domain.Particle(c.Analysis.Particle)
}

// SeedOptions maps [seed] onto the fit seeding rule.
func (c *Config) SeedOptions() fit.SeedOptions {
	s := c.Seed
	return fit.SeedOptions{
		Phi0:            s.Phi0,
		Epsilon:         s.Epsilon,
		Beta:            s.Beta,
		RangeOffset:     s.RangeOffset,
		RangeScale:      s.RangeScale,
		Phi0Max:         s.Phi0Max,
		EpsilonMax:      s.EpsilonMax,
		BetaMax:         s.BetaMax,
		R0Below:         s.R0Below,
		R0Above:         s.R0Above,
		SigmaLowFactor:  s.SigmaLowFactor,
		SigmaHighFactor: s.SigmaHighFactor,
	}
}

// FitOptions maps [fit] onto fitter options.
func (c *Config) FitOptions() fit.Options {
	return fit.Options{
		MaxIterations: c.Fit.MaxIterations,
		FTol:          c.Fit.FTol,
		XTol:          c.Fit.XTol,
		GTol:          c.Fit.GTol,
		InitialLambda: c.Fit.InitialLambda,
	}
}

// SeriesOptions maps [detector] and [series] onto the series evaluator.
// Every value is passed through, zero included.
func (c *Config) SeriesOptions() bortfeld.SeriesOptions {
	fibreRadius, initialDepth, energyFloor := c.Detector.FibreRadius, c.Series.InitialDepth, c.Series.EnergyFloor
	return bortfeld.SeriesOptions{
		FibreRadius:  &fibreRadius,
		InitialDepth: &initialDepth,
		EnergyFloor:  &energyFloor,
	}
}

// HistogramOptions maps [detector] onto the aggregator.
func (c *Config) HistogramOptions() histogram.Options {
	chordRadius := c.Detector.ChordRadius
	return histogram.Options{
		Events:      c.Detector.Events,
		ChordRadius: &chordRadius,
	}
}

// TrendOptions maps [trends] and the fibre radius onto a trend run.
func (c *Config) TrendOptions() trends.Options {
	return trends.Options{
		InitialEnergy: c.Trends.InitialEnergy,
		InitialDepth:  c.Trends.InitialDepth,
		Step:          c.Trends.Step,
		FibreRadius:   c.Detector.FibreRadius,
		MaxSteps:      c.Trends.MaxSteps,
	}
}
