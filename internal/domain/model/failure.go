package model

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a provider call failed. The kind is assigned
// at the point the condition is first detected (HTTP status, provider error
// envelope, transport error), never reconstructed later by scanning message
// text.
type FailureKind string

const (
	// FailureTransport covers network-level errors: unreachable host, DNS,
	// timeout. The message is forwarded from the transport.
	FailureTransport FailureKind = "transport"
	// FailureProvider covers non-success statuses with a structured error
	// message from the provider.
	FailureProvider FailureKind = "provider"
	// FailureMalformedResponse covers success statuses whose body lacks the
	// reply text at the expected path.
	FailureMalformedResponse FailureKind = "malformed_response"
	// FailureValidation covers a credential that failed its probe.
	FailureValidation FailureKind = "validation"
	// FailureAuth covers responses that indicate the credential was
	// rejected (HTTP 401/403, provider invalid-key codes). Callers use it
	// to re-prompt for a new credential.
	FailureAuth FailureKind = "auth"
)

// Failure is a classified provider-boundary error. It carries a
// human-readable message suitable for inline display in a transcript.
type Failure struct {
	Kind     FailureKind
	Provider Provider

	// HTTPStatus is the upstream status code when one was received, 0 otherwise.
	HTTPStatus int
	Message    string

	Cause error
}

func (f *Failure) Error() string {
	if f.Provider != "" {
		return fmt.Sprintf("%s: %s", f.Provider, f.Message)
	}
	return f.Message
}

func (f *Failure) Unwrap() error { return f.Cause }

// AuthSuspected reports whether the failure indicates a rejected or likely
// invalid credential.
func (f *Failure) AuthSuspected() bool { return f.Kind == FailureAuth }

// AsFailure extracts a *Failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
