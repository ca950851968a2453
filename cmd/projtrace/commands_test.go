package main

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"projtrace/internal/ptcache"
	"projtrace/internal/services"
	"projtrace/internal/version"
)

func TestProcessShowAndBaseline(t *testing.T) {
	env := setupCLITestEnv(t)
	settings := env.writeSettings(t, equatorSettings)

	out, err := env.run(t, "process", env.image, "-s", settings, "--json")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	processed := decodeJSON[imageView](t, out)
	if processed.RunID == "" {
		t.Fatal("expected the run to be recorded in the index")
	}
	if len(processed.Boxes) != 1 || len(processed.Boxes[0].Peaks) != 1 {
		t.Fatalf("unexpected boxes: %+v", processed.Boxes)
	}
	peak := processed.Boxes[0].Peaks[0]
	if peak.MovedPeak != 130 {
		t.Fatalf("moved peak = %d, want 130", peak.MovedPeak)
	}
	if math.Abs(float64(peak.Centroid)-30) > 0.5 {
		t.Fatalf("centroid = %v, want about 30", peak.Centroid)
	}

	store := ptcache.New("pt_cache", version.Current(), nil)
	if _, err := os.Stat(store.Path(env.image)); err != nil {
		t.Fatalf("cache record missing: %v", err)
	}

	out, err = env.run(t, "show", env.image, "--json")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	shown := decodeJSON[imageView](t, out)
	if shown.Boxes[0].Peaks[0].Centroid != peak.Centroid {
		t.Fatalf("show centroid = %v, want %v", shown.Boxes[0].Peaks[0].Centroid, peak.Centroid)
	}

	out, err = env.run(t, "show", env.image)
	if err != nil {
		t.Fatalf("show table failed: %v", err)
	}
	if !strings.Contains(out, "equator") || !strings.Contains(out, "Centroid") {
		t.Fatalf("unexpected table output:\n%s", out)
	}

	out, err = env.run(t, "baseline", env.image, "equator", "0", "40%", "--json")
	if err != nil {
		t.Fatalf("baseline failed: %v", err)
	}
	updated := decodeJSON[imageView](t, out)
	if updated.Boxes[0].Peaks[0].Baseline >= peak.Baseline {
		t.Fatalf("baseline %v should drop below the half-height default %v", updated.Boxes[0].Peaks[0].Baseline, peak.Baseline)
	}

	_, err = env.run(t, "baseline", env.image, "equator", "0", "150%")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("rejected baseline error = %v, want ErrValidation", err)
	}
	if services.ExitCode(err) != 2 {
		t.Fatalf("exit code = %d, want 2", services.ExitCode(err))
	}

	out, err = env.run(t, "results", "--image", env.image, "--json")
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	runs := decodeJSON[[]runView](t, out)
	if len(runs) != 2 {
		t.Fatalf("recorded runs = %d, want 2 (process and baseline)", len(runs))
	}
	if runs[0].ID != processed.RunID || runs[1].ID != updated.RunID {
		t.Fatalf("run ids = %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestProcessWithoutIndex(t *testing.T) {
	env := setupCLITestEnv(t)
	settings := env.writeSettings(t, equatorSettings)

	out, err := env.run(t, "process", env.image, "-s", settings, "--no-index")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !strings.Contains(out, "equator") {
		t.Fatalf("expected a results table, got:\n%s", out)
	}
	out, err = env.run(t, "results", "--json")
	if err != nil {
		t.Fatalf("results failed: %v", err)
	}
	if runs := decodeJSON[[]runView](t, out); len(runs) != 0 {
		t.Fatalf("expected no recorded runs, got %d", len(runs))
	}
}

func TestProcessErrors(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := env.run(t, "process", filepath.Join(env.baseDir, "missing.png"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing image error = %v, want ErrNotFound", err)
	}

	outside := env.writeSettings(t, `
[boxes.equator]
x = [0, 500]
y = [0, 9]
`)
	_, err = env.run(t, "process", env.image, "-s", outside)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("box outside image error = %v, want ErrValidation", err)
	}
}

func TestBatchCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	settings := env.writeSettings(t, equatorSettings)

	second := filepath.Join(env.baseDir, "images", "frame_002.png")
	data, err := os.ReadFile(env.image)
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	if err := os.WriteFile(second, data, 0o644); err != nil {
		t.Fatalf("copy image: %v", err)
	}

	out, err := env.run(t, "batch", "-s", settings, "--json", env.image, second)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	items := decodeJSON[[]batchItemView](t, out)
	if len(items) != 2 || items[0].Image != env.image || items[1].Image != second {
		t.Fatalf("unexpected batch items: %+v", items)
	}
	for _, item := range items {
		if item.Status != "processed" || item.Fits != 1 {
			t.Fatalf("item %+v", item)
		}
	}

	out, err = env.run(t, "batch", "-s", settings, "--json", env.image, filepath.Join(env.baseDir, "nope.png"))
	if err == nil {
		t.Fatal("expected batch to report the failed image")
	}
	items = decodeJSON[[]batchItemView](t, out)
	if items[0].Status != "cached" || items[1].Status != "failed" {
		t.Fatalf("statuses = %s, %s", items[0].Status, items[1].Status)
	}
}

func TestCacheClear(t *testing.T) {
	env := setupCLITestEnv(t)
	settings := env.writeSettings(t, equatorSettings)
	if _, err := env.run(t, "process", env.image, "-s", settings); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	out, err := env.run(t, "cache", "path", env.image)
	if err != nil {
		t.Fatalf("cache path failed: %v", err)
	}
	cachePath := strings.TrimSpace(out)
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("cache file missing: %v", err)
	}

	out, err = env.run(t, "cache", "clear", "--forget", env.image)
	if err != nil {
		t.Fatalf("cache clear failed: %v", err)
	}
	if !strings.Contains(out, "Removed") || !strings.Contains(out, "Forgot 1") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(cachePath); !os.IsNotExist(err) {
		t.Fatalf("cache file still present: %v", err)
	}

	out, err = env.run(t, "cache", "clear", env.image)
	if err != nil {
		t.Fatalf("second clear failed: %v", err)
	}
	if !strings.Contains(out, "No cache") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestPreviewCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	settings := env.writeSettings(t, equatorSettings)
	if _, err := env.run(t, "process", env.image, "-s", settings, "--no-index"); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	target := filepath.Join(env.baseDir, "preview.png")
	if _, err := env.run(t, "preview", env.image, "equator", "-o", target, "--scale", "2"); err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if info, err := os.Stat(target); err != nil || info.Size() == 0 {
		t.Fatalf("preview not written: %v", err)
	}
	if _, err := env.run(t, "preview", env.image, "meridian"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("unknown box error = %v", err)
	}
}

func TestVersionAndConfigCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, version.Current()) {
		t.Fatalf("version output %q", out)
	}

	out, err = env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate failed: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, env.configPath) {
		t.Fatalf("unexpected output:\n%s", out)
	}

	target := filepath.Join(env.baseDir, "generated", "config.toml")
	if _, err := env.run(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected an error when the config already exists")
	}
}
