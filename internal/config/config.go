package config

import (
	"fmt"
	"os"
	"strconv"

	"gapmend/internal/errors"
)

// Config represents the complete reconstruction configuration. Every knob is
// exposed; Default returns the standard values and Load applies GAPMEND_*
// environment overrides on top of them.
type Config struct {
	// Grid and reference construction
	GridStepYears     float64
	GapThresholdYears float64

	// Likelihood
	RollingWindowYears     float64
	AnalyticErrorSd        float64 // half of the stated 2-sigma analytic band
	DiscreteHalfWidthYears float64 // Dt
	AutocorrelationLagSpan int
	AutocorrelationSd      float64

	// Prior
	PriorWidthMultiplier float64 // k

	// Sampler
	IterationCount     int
	ChainCount         int
	ThinningFactor     int
	SnookerProbability float64
	RandomSeed         int64
	CheckpointEvery    int    // iteration-boundary stride; 0 disables
	CheckpointPath     string // sqlite file; empty disables persistence

	// Posterior
	BurnInFraction float64
	QuantileLow    float64
	QuantileHigh   float64
	QuantileStep   float64
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		GridStepYears:          1.0,
		GapThresholdYears:      2.0,
		RollingWindowYears:     20,
		AnalyticErrorSd:        5.0,
		DiscreteHalfWidthYears: 1.0,
		AutocorrelationLagSpan: 150,
		AutocorrelationSd:      0.05,
		PriorWidthMultiplier:   3,
		IterationCount:         100000,
		ChainCount:             3,
		ThinningFactor:         5,
		SnookerProbability:     0.1,
		RandomSeed:             42,
		CheckpointEvery:        0,
		BurnInFraction:         0.9,
		QuantileLow:            0.05,
		QuantileHigh:           0.95,
		QuantileStep:           0.025,
	}
}

// Load reads configuration from environment variables over the defaults and
// validates it.
func Load() (Config, error) {
	c := Default()

	c.GridStepYears = getEnvFloat("GAPMEND_GRID_STEP_YEARS", c.GridStepYears)
	c.GapThresholdYears = getEnvFloat("GAPMEND_GAP_THRESHOLD_YEARS", c.GapThresholdYears)
	c.RollingWindowYears = getEnvFloat("GAPMEND_ROLLING_WINDOW_YEARS", c.RollingWindowYears)
	c.AnalyticErrorSd = getEnvFloat("GAPMEND_ANALYTIC_ERROR_SD", c.AnalyticErrorSd)
	c.DiscreteHalfWidthYears = getEnvFloat("GAPMEND_DISCRETE_HALF_WIDTH_YEARS", c.DiscreteHalfWidthYears)
	c.AutocorrelationLagSpan = getEnvInt("GAPMEND_ACF_LAG_SPAN", c.AutocorrelationLagSpan)
	c.AutocorrelationSd = getEnvFloat("GAPMEND_ACF_SD", c.AutocorrelationSd)
	c.PriorWidthMultiplier = getEnvFloat("GAPMEND_PRIOR_WIDTH_MULTIPLIER", c.PriorWidthMultiplier)
	c.IterationCount = getEnvInt("GAPMEND_ITERATION_COUNT", c.IterationCount)
	c.ChainCount = getEnvInt("GAPMEND_CHAIN_COUNT", c.ChainCount)
	c.ThinningFactor = getEnvInt("GAPMEND_THINNING_FACTOR", c.ThinningFactor)
	c.SnookerProbability = getEnvFloat("GAPMEND_SNOOKER_PROBABILITY", c.SnookerProbability)
	c.RandomSeed = int64(getEnvInt("GAPMEND_RANDOM_SEED", int(c.RandomSeed)))
	c.CheckpointEvery = getEnvInt("GAPMEND_CHECKPOINT_EVERY", c.CheckpointEvery)
	c.CheckpointPath = getEnvOrDefault("GAPMEND_CHECKPOINT_PATH", c.CheckpointPath)
	c.BurnInFraction = getEnvFloat("GAPMEND_BURN_IN_FRACTION", c.BurnInFraction)
	c.QuantileLow = getEnvFloat("GAPMEND_QUANTILE_LOW", c.QuantileLow)
	c.QuantileHigh = getEnvFloat("GAPMEND_QUANTILE_HIGH", c.QuantileHigh)
	c.QuantileStep = getEnvFloat("GAPMEND_QUANTILE_STEP", c.QuantileStep)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate applies the eager configuration checks.
func (c Config) Validate() error {
	checks := []struct {
		ok   bool
		name string
		why  string
	}{
		{c.GridStepYears > 0, "GridStepYears", "must be positive"},
		{c.GapThresholdYears > 0, "GapThresholdYears", "must be positive"},
		{c.RollingWindowYears > 0, "RollingWindowYears", "must be positive"},
		{c.AnalyticErrorSd > 0, "AnalyticErrorSd", "must be positive"},
		{c.DiscreteHalfWidthYears > 0, "DiscreteHalfWidthYears", "must be positive"},
		{c.AutocorrelationLagSpan > 0, "AutocorrelationLagSpan", "must be positive"},
		{c.AutocorrelationSd > 0, "AutocorrelationSd", "must be positive"},
		{c.PriorWidthMultiplier >= 0, "PriorWidthMultiplier", "must be >= 0"},
		{c.IterationCount > 0, "IterationCount", "must be positive"},
		{c.ChainCount > 0, "ChainCount", "must be positive"},
		{c.ThinningFactor > 0, "ThinningFactor", "must be positive"},
		{c.SnookerProbability >= 0 && c.SnookerProbability <= 1, "SnookerProbability", "must be in [0, 1]"},
		{c.BurnInFraction >= 0 && c.BurnInFraction < 1, "BurnInFraction", "must be in [0, 1)"},
		{c.QuantileLow > 0 && c.QuantileLow < c.QuantileHigh && c.QuantileHigh < 1, "QuantileLow/High", "must satisfy 0 < low < high < 1"},
		{c.QuantileStep > 0, "QuantileStep", "must be positive"},
	}
	for _, ck := range checks {
		if !ck.ok {
			return errors.ConfigError(fmt.Sprintf("%s %s", ck.name, ck.why))
		}
	}
	return nil
}

// RollingWindowPoints converts the rolling window from years to grid points.
func (c Config) RollingWindowPoints() int {
	w := int(c.RollingWindowYears/c.GridStepYears + 0.5)
	if w < 1 {
		w = 1
	}
	return w
}

// QuantileGrid expands the low/high/step triple into the quantile levels.
func (c Config) QuantileGrid() []float64 {
	var levels []float64
	for q := c.QuantileLow; q <= c.QuantileHigh+1e-9; q += c.QuantileStep {
		levels = append(levels, q)
	}
	return levels
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
