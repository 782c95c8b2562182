package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"emfit/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Fit        FitConfig
	MonteCarlo MonteCarloConfig
	Paths      PathConfig
	Runner     RunnerConfig
	Plot       PlotConfig
}

// FitConfig holds model building and selection settings
type FitConfig struct {
	Threshold       float64 // percent improvement in reduced chi-square
	WidthFraction   float64 // percent deviation allowed from the [SII] width
	WidthMode       string  // free | fixed
	MaxIterations   int
	ContinuumDegree int
	FitContinuum    bool
}

// MonteCarloConfig holds error propagation settings
type MonteCarloConfig struct {
	Iterations int
	Seed       uint64
}

// PathConfig holds file system paths
type PathConfig struct {
	SpectraRoot string // root of the spectroscopic productions
	OutputDir   string
	PerTarget   bool // also write one file per target
}

// RunnerConfig holds batch settings
type RunnerConfig struct {
	Workers int
	Timeout time.Duration // per target; zero disables
}

// PlotConfig holds figure size in inches
type PlotConfig struct {
	Width  float64
	Height float64
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Fit:        *loadFitConfig(),
		MonteCarlo: *loadMonteCarloConfig(),
		Paths:      *loadPathConfig(),
		Runner:     *loadRunnerConfig(),
		Plot:       *loadPlotConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadFitConfig() *FitConfig {
	return &FitConfig{
		Threshold:       getEnvFloatOrDefault("EMFIT_THRESHOLD", 20),
		WidthFraction:   getEnvFloatOrDefault("EMFIT_WIDTH_FRACTION", 60),
		WidthMode:       strings.ToLower(getEnvOrDefault("EMFIT_WIDTH_MODE", "free")),
		MaxIterations:   getEnvIntOrDefault("EMFIT_MAX_ITER", 1000),
		ContinuumDegree: getEnvIntOrDefault("EMFIT_CONTINUUM_DEGREE", 0),
		FitContinuum:    getEnvBoolOrDefault("EMFIT_FIT_CONTINUUM", true),
	}
}

func loadMonteCarloConfig() *MonteCarloConfig {
	return &MonteCarloConfig{
		Iterations: getEnvIntOrDefault("EMFIT_MC_ITERATIONS", 100),
		Seed:       uint64(getEnvIntOrDefault("EMFIT_MC_SEED", 1)),
	}
}

func loadPathConfig() *PathConfig {
	return &PathConfig{
		SpectraRoot: getEnvOrDefault("DESI_SPECTRO_REDUX", "/global/cfs/cdirs/desi/spectro/redux"),
		OutputDir:   getEnvOrDefault("EMFIT_OUTPUT_DIR", "output"),
		PerTarget:   getEnvBoolOrDefault("EMFIT_PER_TARGET", false),
	}
}

func loadRunnerConfig() *RunnerConfig {
	return &RunnerConfig{
		Workers: getEnvIntOrDefault("EMFIT_WORKERS", runtime.NumCPU()),
		Timeout: getEnvDurationOrDefault("EMFIT_TARGET_TIMEOUT", 0),
	}
}

func loadPlotConfig() *PlotConfig {
	return &PlotConfig{
		Width:  getEnvFloatOrDefault("EMFIT_PLOT_WIDTH", 14),
		Height: getEnvFloatOrDefault("EMFIT_PLOT_HEIGHT", 9),
	}
}

// Validate re-checks the configuration after command-line overrides
func (c *Config) Validate() error {
	return validateConfig(c)
}

func validateConfig(config *Config) error {
	if config.Fit.Threshold < 0 {
		return errors.ConfigInvalid("threshold must be non-negative")
	}
	if config.Fit.WidthFraction <= 0 || config.Fit.WidthFraction >= 100 {
		return errors.ConfigInvalid("width fraction must be between 0 and 100 percent")
	}
	if config.Fit.WidthMode != "free" && config.Fit.WidthMode != "fixed" {
		return errors.ConfigInvalid("width mode must be free or fixed")
	}
	if config.Fit.MaxIterations <= 0 {
		return errors.ConfigInvalid("max iterations must be positive")
	}
	if config.Fit.ContinuumDegree < 0 {
		return errors.ConfigInvalid("continuum degree must be non-negative")
	}
	if config.MonteCarlo.Iterations < 0 {
		return errors.ConfigInvalid("Monte Carlo iterations must be non-negative")
	}
	if config.Runner.Workers <= 0 {
		return errors.ConfigInvalid("workers must be positive")
	}
	if config.Runner.Timeout < 0 {
		return errors.ConfigInvalid("target timeout must be non-negative")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
