package driven

import (
	"context"

	"github.com/sgrenier/chatbuddy/internal/domain/model"
)

// CredentialStore defines the driven port for credential persistence.
// The terminal client uses it to remember a validated API key between runs.
type CredentialStore interface {
	// Set stores or replaces the credential identified by service and key.
	Set(ctx context.Context, service, key, value string) error

	// Get retrieves the credential value for the given service and key.
	// Returns ("", nil) if no credential exists.
	Get(ctx context.Context, service, key string) (string, error)

	// List returns all stored credentials.
	List(ctx context.Context) ([]model.Credential, error)

	// Delete removes the credential for the given service and key.
	Delete(ctx context.Context, service, key string) error
}
