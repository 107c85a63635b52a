package driven

import (
	"context"

	"github.com/sgrenier/chatbuddy/internal/domain/model"
)

// ChatClient defines the driven port for one LLM provider backend.
// Implementations own their endpoint URL, request shape, and response
// extraction rule, and classify every failure as a *model.Failure at the
// point it is detected. The credential is supplied per call; clients hold
// no credential state.
type ChatClient interface {
	// Send submits the conversation history plus one new user message and
	// returns the reply text. history is provider-neutral and already in
	// chronological order; the implementation converts it to the provider
	// wire shape with the new message appended last.
	Send(ctx context.Context, apiKey string, history []model.Turn, message string) (string, error)

	// Validate issues a minimal single-turn probe to confirm the credential
	// is accepted by the live provider. A nil return means the key works.
	Validate(ctx context.Context, apiKey string) error
}

// ClientResolver maps a classified provider identity to its ChatClient.
// The identity is produced once by model.ClassifyCredential and threaded
// explicitly; resolvers never re-sniff the credential.
type ClientResolver interface {
	For(p model.Provider) ChatClient
}
