package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	def := Default()
	if cfg.DataDir != def.DataDir || cfg.Workers != def.Workers || cfg.Export.Format != "parquet" || cfg.Log.Level != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tj.yaml")
	yaml := "data_dir: /srv/activities\nworkers: 2\nmax_files: 10\nexport:\n  format: csv\nlog:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TECHJOURNAL_WORKERS", "6")
	t.Setenv("TECHJOURNAL_LOG_FORMAT", "json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DataDir != "/srv/activities" || cfg.MaxFiles != 10 || cfg.Export.Format != "csv" || cfg.Log.Level != "debug" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Workers != 6 {
		t.Fatalf("workers = %d, want env override 6", cfg.Workers)
	}
	if cfg.Log.Format != "json" {
		t.Fatalf("log.format = %q, want json", cfg.Log.Format)
	}
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "other.yaml")
	if err := os.WriteFile(path, []byte("store_path: /tmp/tj\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnv, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.StorePath != "/tmp/tj" {
		t.Fatalf("store_path = %q", cfg.StorePath)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Workers = 0
	cfg.MaxFiles = -1
	cfg.Export.Format = "xlsx"
	cfg.Log.Format = "xml"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"workers", "max_files", "export.format", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestEnvKey(t *testing.T) {
	cases := map[string]string{
		"TECHJOURNAL_DATA_DIR":       "data_dir",
		"TECHJOURNAL_LOG_LEVEL":      "log.level",
		"TECHJOURNAL_EXPORT_OUT_DIR": "export.out_dir",
		"TECHJOURNAL_CONFIG":         "",
	}
	for in, want := range cases {
		if got := envKey(in); got != want {
			t.Fatalf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
