package config

const (
	defaultCacheDirName          = "pt_cache"
	defaultIndexPath             = "~/.local/share/projtrace/results.db"
	defaultLogDir                = "~/.local/share/projtrace/logs"
	defaultHullMargin            = 15
	defaultHullMinStart          = 10
	defaultPeakSearchWindow      = 20
	defaultPeakPositionTolerance = 10.0
	defaultPeakSigmaMin          = 1.0
	defaultPeakSigmaMax          = 50.0
	defaultCenterTolerance       = 1.0
	defaultMaxIterations         = 2000
	defaultTolerance             = 1e-10
	defaultLogFormat             = "auto"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDirName: defaultCacheDirName,
			IndexPath:    defaultIndexPath,
			LogDir:       defaultLogDir,
		},
		Fitting: Fitting{
			HullMargin:            defaultHullMargin,
			HullMinStart:          defaultHullMinStart,
			PeakSearchWindow:      defaultPeakSearchWindow,
			PeakPositionTolerance: defaultPeakPositionTolerance,
			PeakSigmaMin:          defaultPeakSigmaMin,
			PeakSigmaMax:          defaultPeakSigmaMax,
			CenterTolerance:       defaultCenterTolerance,
			MaxIterations:         defaultMaxIterations,
			Tolerance:             defaultTolerance,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
