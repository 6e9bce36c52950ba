package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"

	"bindery/internal/config"
	"bindery/internal/fileutil"
	"bindery/internal/logging"
	"bindery/internal/runner"
)

// Authorizer runs the authorization workflow: provision a signing identity
// through the Provider and persist the exported content key.
type Authorizer struct {
	cfg      *config.Config
	provider Provider
	logger   *slog.Logger
}

// NewAuthorizer constructs an authorizer. A nil provider is tolerated;
// every run then fails with an explanatory outcome.
func NewAuthorizer(cfg *config.Config, provider Provider, logger *slog.Logger) *Authorizer {
	return &Authorizer{
		cfg:      cfg,
		provider: provider,
		logger:   logging.NewComponentLogger(logger, "authorizer"),
	}
}

// Authorize provisions an identity with the given credential and writes the
// exported key material into the configuration directory. The directory is
// locked exclusively for the duration: provisioning is the only writer of
// key material, and concurrent fulfillment runs read it.
func (a *Authorizer) Authorize(ctx context.Context, cred Credential, report runner.Reporter) runner.Outcome {
	logger := logging.WithContext(ctx, a.logger)

	if a.provider == nil {
		return runner.Failed("Identity provider not available")
	}

	lock := flock.New(a.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		logger.Error("config directory lock failed", logging.Error(err))
		return runner.Failed(fmt.Sprintf("Failed to lock configuration directory: %v", err))
	}
	if !locked {
		return runner.Failed("Another bindery run is using the configuration directory")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release config directory lock", logging.Error(err))
		}
	}()

	report.Progress("Creating device files...")
	if err := a.provider.CreateDevice(ctx, a.cfg.Paths.ConfigDir, cred.Version); err != nil {
		logger.Error("device provisioning failed", logging.Error(err))
		return runner.Failed("Failed to create device file")
	}

	report.Progress("Creating user account...")
	if err := a.provider.CreateUser(ctx, cred.Version); err != nil {
		return runner.Failed(fmt.Sprintf("Failed to create user: %v", err))
	}

	report.Progress("Signing in...")
	if err := a.provider.SignIn(ctx, cred); err != nil {
		return runner.Failed(fmt.Sprintf("Failed to sign in: %v", err))
	}

	report.Progress("Activating device...")
	if err := a.provider.ActivateDevice(ctx, cred.Version); err != nil {
		return runner.Failed(fmt.Sprintf("Failed to activate device: %v", err))
	}

	report.Progress("Exporting keys...")
	key, err := a.provider.ExportKey(ctx)
	if err != nil {
		return runner.Failed(fmt.Sprintf("Failed to export keys: %v", err))
	}
	if err := fileutil.WriteFileAtomic(a.cfg.KeyPath(), key, 0o600); err != nil {
		logger.Error("key persistence failed", logging.String("key_path", a.cfg.KeyPath()), logging.Error(err))
		return runner.Failed(fmt.Sprintf("Failed to write key file: %v", err))
	}

	logger.Info("authorization complete", logging.String("key_path", a.cfg.KeyPath()))
	return runner.Succeeded(fmt.Sprintf("Successfully authorized as %s", cred.ID), a.cfg.KeyPath())
}
