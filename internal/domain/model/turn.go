package model

import "time"

// Speaker identifies who produced a conversation turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one conversational exchange unit. Turns are immutable once
// appended to a conversation log; ordering is chronological and never
// changes after creation.
type Turn struct {
	Speaker Speaker
	Text    string
	SentAt  time.Time
}

// ValidationOutcome is the result of probing a credential against its
// provider. It is a capability probe, not a syntactic check: a malformed
// key and a revoked key produce the same shape, distinguished only by
// the error message.
type ValidationOutcome struct {
	Valid        bool
	ErrorMessage string
}
