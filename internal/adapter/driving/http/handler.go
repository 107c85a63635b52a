// Package httphandler implements the REST API driving adapter: the
// mediated chat endpoint, key validation, and health.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sgrenier/chatbuddy/internal/application"
	"github.com/sgrenier/chatbuddy/internal/domain/model"
	"github.com/sgrenier/chatbuddy/internal/domain/port/driven"
)

// apiKeyHeader carries the user-supplied credential on chat requests. The
// server holds no key of its own; every request brings one.
const apiKeyHeader = "X-User-API-Key"

// maxHistoryTurns bounds how much client-supplied history is forwarded to
// the provider. Older turns are dropped, newest kept.
const maxHistoryTurns = 10

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	clients   driven.ClientResolver
	validator *application.KeyValidator
	timeout   time.Duration
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. timeout
// bounds each upstream provider call.
func NewHandler(
	clients driven.ClientResolver,
	validator *application.KeyValidator,
	timeout time.Duration,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		clients:   clients,
		validator: validator,
		timeout:   timeout,
		logger:    logger,
	}
}

// RegisterAPIRoutes registers all REST API routes on the provided mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("POST /api/v1/chat", h.Chat)
	mux.HandleFunc("POST /api/v1/validate_key", h.ValidateKey)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// Chat forwards one conversation turn to the provider selected by the
// caller's credential. The request carries the new message plus the
// client-held history; the reply is returned as plain text and as
// sanitized HTML rendered from markdown.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	apiKey := r.Header.Get(apiKeyHeader)
	if apiKey == "" {
		writeError(w, http.StatusUnauthorized, "no API key provided")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	history := toTurns(req.History)
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	// One session per request: the conversation log itself lives in the
	// browser and arrives with each call.
	session := application.NewConversationSession(h.clients, h.timeout, h.logger)
	for _, turn := range history {
		session.Restore(turn)
	}

	reply, err := session.SendTurn(r.Context(), apiKey, req.Message)
	if err != nil {
		h.writeChatError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Reply:     reply.Text,
		ReplyHTML: RenderMarkdown(reply.Text),
	})
}

// writeChatError maps a failed turn to an HTTP status. Rejected credentials
// map to 401 so the client can re-prompt for a key; upstream trouble maps
// to 502.
func (h *Handler) writeChatError(w http.ResponseWriter, err error) {
	if errors.Is(err, application.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, "no message provided")
		return
	}
	if errors.Is(err, application.ErrTurnInFlight) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	if f, ok := model.AsFailure(err); ok {
		status := http.StatusBadGateway
		if f.AuthSuspected() {
			status = http.StatusUnauthorized
		}
		writeError(w, status, f.Message)
		return
	}

	h.logger.Error("chat turn failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// ValidateKey probes the supplied credential against its provider and
// reports whether it was accepted.
func (h *Handler) ValidateKey(w http.ResponseWriter, r *http.Request) {
	var req ValidateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ValidateKeyResponse{Valid: false, Error: "invalid request body"})
		return
	}
	if req.APIKey == "" {
		writeJSON(w, http.StatusBadRequest, ValidateKeyResponse{Valid: false, Error: "no API key provided"})
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	outcome := h.validator.Validate(ctx, req.APIKey)
	if !outcome.Valid {
		writeJSON(w, http.StatusBadRequest, ValidateKeyResponse{Valid: false, Error: outcome.ErrorMessage})
		return
	}
	writeJSON(w, http.StatusOK, ValidateKeyResponse{Valid: true})
}

// Health is a basic liveness check.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// toTurns maps wire history entries to domain turns. Any role other than
// "user" folds into the assistant speaker, mirroring the normalizers.
func toTurns(history []HistoryEntry) []model.Turn {
	turns := make([]model.Turn, 0, len(history))
	for _, entry := range history {
		speaker := model.SpeakerAssistant
		if entry.Role == "user" {
			speaker = model.SpeakerUser
		}
		turns = append(turns, model.Turn{Speaker: speaker, Text: entry.Content})
	}
	return turns
}
