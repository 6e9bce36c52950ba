package identity

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"bindery/internal/runner"
	"bindery/internal/testsupport"
)

type stubProvider struct {
	failAt string
	steps  []string
	key    []byte
}

func (s *stubProvider) record(step string) error {
	s.steps = append(s.steps, step)
	if s.failAt == step {
		return errors.New(step + " rejected")
	}
	return nil
}

func (s *stubProvider) CreateDevice(ctx context.Context, configDir, version string) error {
	return s.record("create_device")
}

func (s *stubProvider) CreateUser(ctx context.Context, version string) error {
	return s.record("create_user")
}

func (s *stubProvider) SignIn(ctx context.Context, cred Credential) error {
	return s.record("sign_in")
}

func (s *stubProvider) ActivateDevice(ctx context.Context, version string) error {
	return s.record("activate")
}

func (s *stubProvider) ExportKey(ctx context.Context) ([]byte, error) {
	if err := s.record("export_key"); err != nil {
		return nil, err
	}
	return s.key, nil
}

func collectReporter(into *[]string) runner.Reporter {
	return runner.ReporterFunc(func(m string) { *into = append(*into, m) })
}

func TestAuthorizeHappyPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	provider := &stubProvider{key: []byte("exported key")}
	authorizer := NewAuthorizer(cfg, provider, nil)

	var progress []string
	outcome := authorizer.Authorize(context.Background(), Credential{ID: "reader@example.com", Secret: "hunter2", Version: "2.0.1"}, collectReporter(&progress))

	if !outcome.Success {
		t.Fatalf("outcome: %+v", outcome)
	}
	if !strings.Contains(outcome.Message, "reader@example.com") {
		t.Fatalf("message = %q", outcome.Message)
	}

	wantSteps := []string{"create_device", "create_user", "sign_in", "activate", "export_key"}
	if len(provider.steps) != len(wantSteps) {
		t.Fatalf("steps = %v, want %v", provider.steps, wantSteps)
	}
	for i, step := range wantSteps {
		if provider.steps[i] != step {
			t.Fatalf("step[%d] = %q, want %q", i, provider.steps[i], step)
		}
	}

	key, err := os.ReadFile(cfg.KeyPath())
	if err != nil {
		t.Fatalf("key not persisted: %v", err)
	}
	if string(key) != "exported key" {
		t.Fatalf("key content = %q", key)
	}
	if len(progress) == 0 {
		t.Fatal("no progress messages emitted")
	}
}

func TestAuthorizeStopsAtFirstFailedStep(t *testing.T) {
	tests := []struct {
		failAt      string
		wantMessage string
		wantSteps   int
	}{
		{"create_device", "Failed to create device file", 1},
		{"create_user", "Failed to create user", 2},
		{"sign_in", "Failed to sign in", 3},
		{"activate", "Failed to activate device", 4},
		{"export_key", "Failed to export keys", 5},
	}
	for _, tt := range tests {
		t.Run(tt.failAt, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			provider := &stubProvider{failAt: tt.failAt, key: []byte("k")}
			authorizer := NewAuthorizer(cfg, provider, nil)

			outcome := authorizer.Authorize(context.Background(), Credential{ID: "u", Version: "2.0.1"}, runner.ReporterFunc(func(string) {}))
			if outcome.Success {
				t.Fatal("expected failure")
			}
			if !strings.Contains(outcome.Message, tt.wantMessage) {
				t.Fatalf("message = %q, want contains %q", outcome.Message, tt.wantMessage)
			}
			if len(provider.steps) != tt.wantSteps {
				t.Fatalf("provider ran %d steps, want %d", len(provider.steps), tt.wantSteps)
			}
			if _, err := os.Stat(cfg.KeyPath()); !os.IsNotExist(err) {
				t.Fatal("key file must not exist after failed authorization")
			}
		})
	}
}

func TestAuthorizeWithoutProvider(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	authorizer := NewAuthorizer(cfg, nil, nil)
	outcome := authorizer.Authorize(context.Background(), Credential{}, runner.ReporterFunc(func(string) {}))
	if outcome.Success || !strings.Contains(outcome.Message, "not available") {
		t.Fatalf("outcome: %+v", outcome)
	}
}
