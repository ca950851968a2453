package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"projtrace/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	indexPath  string
	image      string
}

const equatorSettings = `
[globals]
lambda_sdd = 1500.0

[boxes.equator]
x = [0, 200]
y = [0, 9]
orientation = "h"
method = "fit"
peaks = [28.0]
`

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "projtrace.toml"),
		indexPath:  filepath.Join(base, "index", "results.db"),
		image:      filepath.Join(base, "images", "frame_001.png"),
	}
	configBody := fmt.Sprintf(`[paths]
cache_dir_name = "pt_cache"
index_path = %q
log_dir = %q

[batch]
workers = 2

[logging]
format = "json"
level = "error"
`, env.indexPath, filepath.Join(base, "logs"))
	if err := os.WriteFile(env.configPath, []byte(configBody), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	profile := testsupport.Profile(201, 100, 10, testsupport.Peak{Offset: 30, Sigma: 4, Amplitude: 2000})
	testsupport.WritePNG16(t, env.image, testsupport.HorizontalImage(profile, 10))
	return env
}

func (e *cliTestEnv) writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(e.baseDir, "settings.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return path
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func decodeJSON[T any](t *testing.T, data string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return v
}
