package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFitting(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateFitting() error {
	f := c.Fitting
	if f.HullMargin < 0 {
		return errors.New("fitting.hull_margin must be >= 0")
	}
	if f.HullMinStart < 0 {
		return errors.New("fitting.hull_min_start must be >= 0")
	}
	if err := ensurePositiveMap(map[string]float64{
		"fitting.peak_search_window":      float64(f.PeakSearchWindow),
		"fitting.peak_position_tolerance": f.PeakPositionTolerance,
		"fitting.peak_sigma_min":          f.PeakSigmaMin,
		"fitting.center_tolerance":        f.CenterTolerance,
		"fitting.max_iterations":          float64(f.MaxIterations),
		"fitting.tolerance":               f.Tolerance,
	}); err != nil {
		return err
	}
	if f.PeakSigmaMax <= f.PeakSigmaMin {
		return errors.New("fitting.peak_sigma_max must be greater than fitting.peak_sigma_min")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.Workers <= 0 {
		return errors.New("batch.workers must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]float64) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
