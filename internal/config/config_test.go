package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Fulfillment.RequestTimeout != 30 {
		t.Fatalf("default request_timeout = %d, want 30", cfg.Fulfillment.RequestTimeout)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("default logging format = %q, want console", cfg.Logging.Format)
	}
	if !filepath.IsAbs(cfg.Paths.ConfigDir) {
		t.Fatalf("config dir not normalized: %q", cfg.Paths.ConfigDir)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`config_dir = "` + filepath.Join(dir, "cfg") + `"`,
		`library_dir = "` + filepath.Join(dir, "books") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		"[fulfillment]",
		`user_agent = "  custom/1.0  "`,
		"request_timeout = 5",
		"download_timeout = 60",
		"[logging]",
		`format = "JSON"`,
		`level = "DEBUG"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Fulfillment.UserAgent != "custom/1.0" {
		t.Fatalf("user agent not trimmed: %q", cfg.Fulfillment.UserAgent)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not lowercased: %+v", cfg.Logging)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero timeout", "[fulfillment]\nrequest_timeout = 0\n"},
		{"bad log format", "[logging]\nformat = \"yaml\"\n"},
		{"bad log level", "[logging]\nlevel = \"verbose\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestKeyAndLockPaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.ConfigDir = "/tmp/bindery-test"
	if got := cfg.KeyPath(); got != "/tmp/bindery-test/"+KeyFileName {
		t.Fatalf("KeyPath() = %q", got)
	}
	if got := cfg.LockPath(); got != "/tmp/bindery-test/bindery.lock" {
		t.Fatalf("LockPath() = %q", got)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("sample config should load cleanly: exists=%v err=%v", exists, err)
	}
}
