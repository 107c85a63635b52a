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

// newGoogleClient creates a client backed by the given httptest handler.
func newGoogleClient(t *testing.T, handler http.Handler) *provider.GoogleClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return provider.NewGoogleClient(
		provider.WithGoogleBaseURL(server.URL),
		provider.WithGoogleHTTPClient(server.Client()),
	)
}

func TestGoogleClient_Send_Success(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}`))
	})

	client := newGoogleClient(t, handler)
	history := []model.Turn{
		{Speaker: model.SpeakerUser, Text: "hello"},
		{Speaker: model.SpeakerAssistant, Text: "hey"},
	}

	reply, err := client.Send(context.Background(), "AIzaTest", history, "how are you?")

	require.NoError(t, err)
	assert.Equal(t, "hi", reply)
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash-exp:generateContent", gotPath)
	assert.Equal(t, "AIzaTest", gotKey)
	// No Authorization header on the Google path: the key travels as a
	// query parameter only.

	contents, ok := gotBody["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 3)
	second := contents[1].(map[string]any)
	assert.Equal(t, "model", second["role"])
}

func TestGoogleClient_Send_MissingCandidates(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	client := newGoogleClient(t, handler)
	_, err := client.Send(context.Background(), "AIzaTest", nil, "hello")

	f, ok := model.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, model.FailureMalformedResponse, f.Kind)
	assert.Equal(t, "unexpected response format from Gemini", f.Message)
}

func TestGoogleClient_Send_EmptyParts(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[]}}]}`))
	})

	client := newGoogleClient(t, handler)
	_, err := client.Send(context.Background(), "AIzaTest", nil, "hello")

	f, ok := model.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, model.FailureMalformedResponse, f.Kind)
}

func TestGoogleClient_Send_InvalidKeyMarker(t *testing.T) {
	// Gemini reports a bad key as HTTP 400 with an error message marker,
	// not as a 401.
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`))
	})

	client := newGoogleClient(t, handler)
	_, err := client.Send(context.Background(), "not-a-key", nil, "hello")

	f, ok := model.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, model.FailureAuth, f.Kind)
	assert.Contains(t, f.Message, "API key not valid")
}

func TestGoogleClient_Send_Forbidden(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"permission denied"}}`))
	})

	client := newGoogleClient(t, handler)
	_, err := client.Send(context.Background(), "AIzaTest", nil, "hello")

	f, ok := model.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, model.FailureAuth, f.Kind)
	assert.Equal(t, http.StatusForbidden, f.HTTPStatus)
}

func TestGoogleClient_Send_ServerErrorWithoutEnvelope(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`oops`))
	})

	client := newGoogleClient(t, handler)
	_, err := client.Send(context.Background(), "AIzaTest", nil, "hello")

	f, ok := model.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, model.FailureProvider, f.Kind)
	assert.Equal(t, "Gemini API error", f.Message)
}

func TestGoogleClient_Validate_SendsProbe(t *testing.T) {
	var gotBody map[string]any
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	})

	client := newGoogleClient(t, handler)
	err := client.Validate(context.Background(), "AIzaTest")

	require.NoError(t, err)
	contents := gotBody["contents"].([]any)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	assert.Equal(t, "Test", parts[0].(map[string]any)["text"])
}
