// Package identity drives the authorization workflow against an external
// identity provider. The provider owns device key generation, account
// registration, and activation; this package sequences the steps, guards
// the configuration directory, and persists the exported content key.
package identity

import "context"

// Credential authenticates one authorization attempt. It is supplied once
// and never persisted.
type Credential struct {
	ID      string
	Secret  string
	Version string
}

// Provider is the external collaborator that establishes the cryptographic
// identity used to sign fulfillment requests. Each method corresponds to
// one provisioning step; steps are invoked in declaration order.
type Provider interface {
	// CreateDevice generates the device key and device registration files
	// inside configDir.
	CreateDevice(ctx context.Context, configDir, version string) error
	// CreateUser registers an anonymous account for the device.
	CreateUser(ctx context.Context, version string) error
	// SignIn attaches the credential to the account.
	SignIn(ctx context.Context, cred Credential) error
	// ActivateDevice completes provisioning for the signed-in account.
	ActivateDevice(ctx context.Context, version string) error
	// ExportKey returns the content-decryption key for the activated
	// identity.
	ExportKey(ctx context.Context) ([]byte, error)
}
