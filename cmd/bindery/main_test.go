package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bindery/internal/config"
	"bindery/internal/queue"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ConfigDir = filepath.Join(base, "config")
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfg := &cfgVal

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		configPath: configPath,
		baseDir:    base,
	}

	t.Cleanup(func() {
		store.Close()
	})

	return env
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nconfig_dir = %q\nlibrary_dir = %q\nlog_dir = %q\n\n[logging]\nformat = \"json\"\nlevel = \"error\"\n",
		cfg.Paths.ConfigDir,
		cfg.Paths.LibraryDir,
		cfg.Paths.LogDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestCLIVersionCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"version"}, "")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, version)
}

func TestCLIDecryptWithoutDecryptor(t *testing.T) {
	env := setupCLITestEnv(t)

	input := filepath.Join(env.baseDir, "book.epub")
	if err := os.WriteFile(input, []byte("PK\x03\x04"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	output := filepath.Join(env.baseDir, "book-decrypted.epub")

	out, _, err := runCLI(t, []string{"decrypt", input, output}, env.configPath)
	if err == nil {
		t.Fatal("expected decrypt to fail without a decryptor")
	}
	requireContains(t, out, "Container decryptor not available")
}

func TestCLIAuthorizeWithoutProvider(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"authorize", "-u", "reader@example.com", "-p", "secret"}, env.configPath)
	if err == nil {
		t.Fatal("expected authorize to fail without a provider")
	}
	requireContains(t, out, "Identity provider not available")
}
