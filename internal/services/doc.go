// Package services defines the error taxonomy and context plumbing shared
// by the fulfillment, authorization, and decryption workflows.
//
// Workflow code wraps failures with one of the exported sentinel markers so
// the orchestrator boundary can classify them and surface a single
// human-readable terminal message without losing the underlying cause.
package services
