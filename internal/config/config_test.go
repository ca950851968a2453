package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"projtrace/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantIndex := filepath.Join(tempHome, ".local", "share", "projtrace", "results.db")
	if cfg.Paths.IndexPath != wantIndex {
		t.Fatalf("unexpected index path: got %q want %q", cfg.Paths.IndexPath, wantIndex)
	}
	if cfg.Paths.CacheDirName != "pt_cache" {
		t.Fatalf("unexpected cache dir name: %q", cfg.Paths.CacheDirName)
	}
	if cfg.Fitting.PeakSearchWindow != 20 {
		t.Fatalf("unexpected peak search window: %d", cfg.Fitting.PeakSearchWindow)
	}
	if cfg.Fitting.HullMargin != 15 || cfg.Fitting.HullMinStart != 10 {
		t.Fatalf("unexpected hull defaults: %+v", cfg.Fitting)
	}
	if cfg.Batch.Workers <= 0 {
		t.Fatalf("expected positive worker count, got %d", cfg.Batch.Workers)
	}
	if cfg.Logging.Format != "auto" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, filepath.Dir(cfg.Paths.IndexPath)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "projtrace.toml")

	type payload struct {
		Paths struct {
			CacheDirName string `toml:"cache_dir_name"`
			LogDir       string `toml:"log_dir"`
		} `toml:"paths"`
		Fitting struct {
			PeakSearchWindow int `toml:"peak_search_window"`
		} `toml:"fitting"`
		Batch struct {
			Workers int `toml:"workers"`
		} `toml:"batch"`
	}
	custom := payload{}
	custom.Paths.CacheDirName = "custom_cache"
	custom.Paths.LogDir = filepath.Join(tempDir, "logs")
	custom.Fitting.PeakSearchWindow = 12
	custom.Batch.Workers = 3

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.CacheDirName != "custom_cache" {
		t.Fatalf("unexpected cache dir name: %q", cfg.Paths.CacheDirName)
	}
	if cfg.Fitting.PeakSearchWindow != 12 {
		t.Fatalf("unexpected peak search window: %d", cfg.Fitting.PeakSearchWindow)
	}
	if cfg.Batch.Workers != 3 {
		t.Fatalf("unexpected workers: %d", cfg.Batch.Workers)
	}
	if cfg.Fitting.PeakSigmaMax != config.Default().Fitting.PeakSigmaMax {
		t.Fatalf("expected untouched defaults to survive, got %v", cfg.Fitting.PeakSigmaMax)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "projtrace.toml")
	if err := os.WriteFile(configPath, []byte("[fitting]\nbogus = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestWorkersFromEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PROJTRACE_WORKERS", "5")
	configPath := filepath.Join(t.TempDir(), "missing.toml")

	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config to be absent")
	}
	if cfg.Batch.Workers != 5 {
		t.Fatalf("expected workers from env, got %d", cfg.Batch.Workers)
	}
}

func TestValidateRejectsBadFitting(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"sigma order", func(c *config.Config) { c.Fitting.PeakSigmaMax = c.Fitting.PeakSigmaMin }, "peak_sigma_max"},
		{"negative margin", func(c *config.Config) { c.Fitting.HullMargin = -1 }, "hull_margin"},
		{"zero tolerance", func(c *config.Config) { c.Fitting.PeakPositionTolerance = 0 }, "peak_position_tolerance"},
		{"workers", func(c *config.Config) { c.Batch.Workers = 0 }, "batch.workers"},
		{"level", func(c *config.Config) { c.Batch.Workers = 1; c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Batch.Workers = 1
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	t.Setenv("HOME", t.TempDir())
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Fitting.MaxIterations != config.Default().Fitting.MaxIterations {
		t.Fatalf("sample max_iterations drifted: %d", cfg.Fitting.MaxIterations)
	}
}
