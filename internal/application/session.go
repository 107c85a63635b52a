// Package application holds the use-case services that orchestrate the
// domain: the conversation session and the key validator.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sgrenier/chatbuddy/internal/domain/model"
	"github.com/sgrenier/chatbuddy/internal/domain/port/driven"
)

// ErrEmptyMessage is returned by SendTurn for empty or whitespace-only
// input. No network call is made and no turn is appended.
var ErrEmptyMessage = errors.New("message is empty")

// ErrTurnInFlight is returned by SendTurn while a previous call is still
// awaiting its reply. The session serializes turns; it has no queue and
// does not race two in-flight calls against the same log.
var ErrTurnInFlight = errors.New("a turn is already awaiting its reply")

// ConversationSession owns the ordered, append-only turn log for one
// conversation and orchestrates a full exchange: append the user turn
// optimistically, call the provider, append the reply or surface the
// classified failure. The log lives for the lifetime of the session; no
// other component reads or writes it.
type ConversationSession struct {
	mu    sync.Mutex
	busy  bool
	turns []model.Turn

	clients driven.ClientResolver
	timeout time.Duration
	logger  *slog.Logger
}

// NewConversationSession creates an empty session. timeout bounds each
// provider round trip; zero disables the session-level deadline and leaves
// only the transport timeout.
func NewConversationSession(clients driven.ClientResolver, timeout time.Duration, logger *slog.Logger) *ConversationSession {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationSession{
		clients: clients,
		timeout: timeout,
		logger:  logger,
	}
}

// SendTurn submits one user message using the given credential and returns
// the assistant's reply turn. The user turn is appended before the network
// call so the transcript always shows what was sent, even when the call
// fails; a failed call appends no assistant turn.
func (s *ConversationSession) SendTurn(ctx context.Context, apiKey, userText string) (model.Turn, error) {
	if strings.TrimSpace(userText) == "" {
		return model.Turn{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return model.Turn{}, ErrTurnInFlight
	}
	s.busy = true
	s.turns = append(s.turns, model.Turn{
		Speaker: model.SpeakerUser,
		Text:    userText,
		SentAt:  time.Now(),
	})
	history := s.snapshotLocked(1) // everything before the turn just appended
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	provider := model.ClassifyCredential(apiKey)
	client := s.clients.For(provider)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	reply, err := client.Send(ctx, apiKey, history, userText)
	if err != nil {
		if f, ok := model.AsFailure(err); ok {
			s.logger.Warn("turn failed",
				"provider", provider,
				"kind", f.Kind,
				"status", f.HTTPStatus,
			)
		}
		return model.Turn{}, fmt.Errorf("send turn: %w", err)
	}

	turn := model.Turn{
		Speaker: model.SpeakerAssistant,
		Text:    reply,
		SentAt:  time.Now(),
	}
	s.mu.Lock()
	s.turns = append(s.turns, turn)
	s.mu.Unlock()

	return turn, nil
}

// Restore appends a prior turn to the log without any network activity.
// It rebuilds a session from an externally held transcript, preserving the
// order in which turns are restored.
func (s *ConversationSession) Restore(turn model.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turn)
}

// Turns returns a copy of the conversation log in chronological order.
func (s *ConversationSession) Turns() []model.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(0)
}

// Reset discards the entire log. The session is reusable afterwards.
func (s *ConversationSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}

// snapshotLocked copies the log minus the last trim turns. Callers must
// hold s.mu.
func (s *ConversationSession) snapshotLocked(trim int) []model.Turn {
	out := make([]model.Turn, len(s.turns)-trim)
	copy(out, s.turns)
	return out
}
