package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFitting()
	c.normalizeBatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	c.Paths.CacheDirName = strings.TrimSpace(c.Paths.CacheDirName)
	if c.Paths.CacheDirName == "" {
		c.Paths.CacheDirName = defaultCacheDirName
	}
	if strings.TrimSpace(c.Paths.IndexPath) == "" {
		c.Paths.IndexPath = defaultIndexPath
	}
	if c.Paths.IndexPath, err = expandPath(c.Paths.IndexPath); err != nil {
		return fmt.Errorf("paths.index_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFitting() {
	if c.Fitting.PeakSearchWindow <= 0 {
		c.Fitting.PeakSearchWindow = defaultPeakSearchWindow
	}
	if c.Fitting.MaxIterations <= 0 {
		c.Fitting.MaxIterations = defaultMaxIterations
	}
	if c.Fitting.Tolerance <= 0 {
		c.Fitting.Tolerance = defaultTolerance
	}
}

func (c *Config) normalizeBatch() {
	if c.Batch.Workers <= 0 {
		if value, ok := os.LookupEnv("PROJTRACE_WORKERS"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
				c.Batch.Workers = n
				return
			}
		}
		c.Batch.Workers = runtime.NumCPU()
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "":
		c.Logging.Format = defaultLogFormat
	case "auto", "console", "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		if value, ok := os.LookupEnv("PROJTRACE_LOG_LEVEL"); ok {
			c.Logging.Level = strings.ToLower(strings.TrimSpace(value))
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
