package projection

import "projtrace/internal/config"

// Options tunes hull ranges, peak search and the solver.
type Options struct {
	HullMargin            int
	HullMinStart          int
	PeakSearchWindow      int
	PeakPositionTolerance float64
	PeakSigmaMin          float64
	PeakSigmaMax          float64
	CenterTolerance       float64
	MaxIterations         int
	Tolerance             float64
}

// OptionsFromConfig copies the fitting section of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return DefaultOptions()
	}
	f := cfg.Fitting
	return Options{
		HullMargin:            f.HullMargin,
		HullMinStart:          f.HullMinStart,
		PeakSearchWindow:      f.PeakSearchWindow,
		PeakPositionTolerance: f.PeakPositionTolerance,
		PeakSigmaMin:          f.PeakSigmaMin,
		PeakSigmaMax:          f.PeakSigmaMax,
		CenterTolerance:       f.CenterTolerance,
		MaxIterations:         f.MaxIterations,
		Tolerance:             f.Tolerance,
	}
}

// DefaultOptions returns the configuration defaults.
func DefaultOptions() Options {
	cfg := config.Default()
	return OptionsFromConfig(&cfg)
}
