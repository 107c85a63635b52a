package provider

import (
	"github.com/sgrenier/chatbuddy/internal/domain/model"
	"github.com/sgrenier/chatbuddy/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ClientResolver = (*Registry)(nil)

// Registry holds the one client per supported provider and resolves a
// classified provider identity to its client. Exactly two providers exist;
// the registry is a closed two-way map, not an extension point.
type Registry struct {
	google     driven.ChatClient
	openRouter driven.ChatClient
}

// NewRegistry creates a Registry over the two provider clients.
func NewRegistry(google, openRouter driven.ChatClient) *Registry {
	return &Registry{google: google, openRouter: openRouter}
}

// For returns the client for the given provider identity. Any identity
// other than openrouter resolves to the Google client, mirroring the
// classifier's fallback.
func (r *Registry) For(p model.Provider) driven.ChatClient {
	if p == model.ProviderOpenRouter {
		return r.openRouter
	}
	return r.google
}
