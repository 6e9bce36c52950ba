// Package drm dispatches decryption and patch work to the format-specific
// collaborators. The byte-level algorithms live outside this codebase; the
// dispatcher owns key loading and the total mapping of collaborator result
// codes to outcomes.
package drm

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"bindery/internal/logging"
	"bindery/internal/runner"
)

// Result codes reported by a ContainerDecryptor.
const (
	CodeOK       = 0
	CodeDRMFree  = 1
	CodeWrongKey = 2
)

// ContainerDecryptor decrypts an archive-container book with the given key
// material, writing the cleartext to dst. It returns one of the Code
// constants, or any other value for an internal failure.
type ContainerDecryptor func(key []byte, src, dst string) int

// DocumentPatcher applies a rights document to a read-only document,
// binding it to the given resource identifier. It reports plain success.
type DocumentPatcher func(src string, rights []byte, resourceID, dst string) bool

// Dispatcher routes decrypt requests to the configured collaborators.
type Dispatcher struct {
	decryptor ContainerDecryptor
	logger    *slog.Logger
}

// NewDispatcher wires a dispatcher. A nil decryptor is tolerated; every
// decrypt attempt then fails with an explanatory outcome.
func NewDispatcher(decryptor ContainerDecryptor, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		decryptor: decryptor,
		logger:    logging.NewComponentLogger(logger, "drm"),
	}
}

// Decrypt reads the persisted key material and invokes the container
// decryptor, mapping its result code to a terminal outcome. The mapping is
// total: every unrecognized code is an explicit failure.
func (d *Dispatcher) Decrypt(ctx context.Context, keyPath, src, dst string, report runner.Reporter) runner.Outcome {
	logger := logging.WithContext(ctx, d.logger)

	if d.decryptor == nil {
		return runner.Failed("Container decryptor not available")
	}

	report.Progress("Reading key file...")
	key, err := os.ReadFile(keyPath)
	if err != nil {
		logger.Error("key material unreadable", logging.String("key_path", keyPath), logging.Error(err))
		return runner.Failed(fmt.Sprintf("Failed to read key file: %v", err))
	}

	report.Progress("Decrypting EPUB...")
	code := d.decryptor(key, src, dst)
	switch code {
	case CodeOK:
		logger.Info("decryption complete", logging.String("output", dst))
		return runner.Succeeded(fmt.Sprintf("Successfully decrypted to: %s", dst), dst)
	case CodeDRMFree:
		return runner.Failed("EPUB is DRM-free")
	case CodeWrongKey:
		return runner.Failed("Failed to decrypt: wrong key")
	default:
		logger.Error("decryptor reported unknown code", logging.Int("code", code))
		return runner.Failed(fmt.Sprintf("Decryption failed with error code %d", code))
	}
}
