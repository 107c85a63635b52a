package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgrenier/chatbuddy/internal/adapter/driven/provider"
	"github.com/sgrenier/chatbuddy/internal/domain/model"
)

// newOpenRouterClient creates a client backed by the given httptest handler.
func newOpenRouterClient(t *testing.T, handler http.Handler) *provider.OpenRouterClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return provider.NewOpenRouterClient("http://localhost:8080", "ChatBuddy",
		provider.WithOpenRouterBaseURL(server.URL),
		provider.WithOpenRouterHTTPClient(server.Client()),
	)
}

func TestOpenRouterClient_Send_Success(t *testing.T) {
	var gotAuth, gotReferer, gotTitle string
	var gotBody map[string]any

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`))
	})

	client := newOpenRouterClient(t, handler)
	history := []model.Turn{
		{Speaker: model.SpeakerUser, Text: "hello"},
		{Speaker: model.SpeakerAssistant, Text: "hey"},
	}

	reply, err := client.Send(context.Background(), "sk-or-v1-test", history, "how are you?")

	require.NoError(t, err)
	assert.Equal(t, "hi", reply)
	assert.Equal(t, "Bearer sk-or-v1-test", gotAuth)
	assert.Equal(t, "http://localhost:8080", gotReferer)
	assert.Equal(t, "ChatBuddy", gotTitle)

	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 3)
	last := messages[2].(map[string]any)
	assert.Equal(t, "user", last["role"])
	assert.Equal(t, "how are you?", last["content"])
}

func TestOpenRouterClient_Send_Unauthorized(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"No auth credentials found","code":401}}`))
	})

	client := newOpenRouterClient(t, handler)
	_, err := client.Send(context.Background(), "sk-or-bad", nil, "hello")

	f, ok := model.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, model.FailureAuth, f.Kind)
	assert.True(t, f.AuthSuspected())
	assert.Equal(t, http.StatusUnauthorized, f.HTTPStatus)
	assert.Equal(t, "No auth credentials found", f.Message)
}

func TestOpenRouterClient_Send_ProviderErrorWithoutMessage(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{}`))
	})

	client := newOpenRouterClient(t, handler)
	_, err := client.Send(context.Background(), "sk-or-test", nil, "hello")

	f, ok := model.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, model.FailureProvider, f.Kind)
	assert.Equal(t, "OpenRouter API error", f.Message)
}

func TestOpenRouterClient_Send_NoChoices(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	client := newOpenRouterClient(t, handler)
	_, err := client.Send(context.Background(), "sk-or-test", nil, "hello")

	f, ok := model.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, model.FailureMalformedResponse, f.Kind)
}

func TestOpenRouterClient_Send_ErrorEnvelopeUnderOK(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	})

	client := newOpenRouterClient(t, handler)
	_, err := client.Send(context.Background(), "sk-or-test", nil, "hello")

	f, ok := model.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, model.FailureProvider, f.Kind)
	assert.Equal(t, "rate limited", f.Message)
}

func TestOpenRouterClient_Send_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	client := provider.NewOpenRouterClient("", "",
		provider.WithOpenRouterBaseURL(server.URL),
		provider.WithOpenRouterHTTPClient(server.Client()),
	)
	server.Close() // connection refused from here on

	_, err := client.Send(context.Background(), "sk-or-test", nil, "hello")

	f, ok := model.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, model.FailureTransport, f.Kind)
}

func TestOpenRouterClient_Validate_UsesProbeModel(t *testing.T) {
	var gotBody map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	client := newOpenRouterClient(t, handler)
	err := client.Validate(context.Background(), "sk-or-v1-test")

	require.NoError(t, err)
	assert.Equal(t, "google/gemma-3-12b-it:free", gotBody["model"])
	messages := gotBody["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "Test", messages[0].(map[string]any)["content"])
}
