package application

import (
	"context"

	"github.com/sgrenier/chatbuddy/internal/domain/model"
	"github.com/sgrenier/chatbuddy/internal/domain/port/driven"
)

// KeyValidator probes a credential against the provider it classifies to.
// The probe is a capability check against the live API, not a syntax check.
type KeyValidator struct {
	clients driven.ClientResolver
}

// NewKeyValidator creates a KeyValidator over the provider registry.
func NewKeyValidator(clients driven.ClientResolver) *KeyValidator {
	return &KeyValidator{clients: clients}
}

// Validate classifies the credential, sends a minimal probe through the
// matching client, and maps the result to a ValidationOutcome. The outcome
// is never cached: a key the user has accepted is trusted for subsequent
// turns without re-validation.
func (v *KeyValidator) Validate(ctx context.Context, apiKey string) model.ValidationOutcome {
	if apiKey == "" {
		return model.ValidationOutcome{Valid: false, ErrorMessage: "no API key provided"}
	}

	client := v.clients.For(model.ClassifyCredential(apiKey))
	if err := client.Validate(ctx, apiKey); err != nil {
		message := "validation failed"
		if f, ok := model.AsFailure(err); ok && f.Message != "" {
			message = f.Message
		}
		return model.ValidationOutcome{Valid: false, ErrorMessage: message}
	}
	return model.ValidationOutcome{Valid: true}
}
