package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sgrenier/chatbuddy/internal/domain/model"
	"github.com/sgrenier/chatbuddy/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ChatClient = (*OpenRouterClient)(nil)

const (
	defaultOpenRouterBaseURL    = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel      = "google/gemini-2.0-flash-exp:free"
	defaultOpenRouterProbeModel = "google/gemma-3-12b-it:free"
)

// OpenRouterClient implements the ChatClient port against the OpenRouter
// chat completions endpoint. The credential goes in a bearer Authorization
// header; HTTP-Referer and X-Title identify the calling application, which
// some free models require.
type OpenRouterClient struct {
	baseURL    string
	model      string
	probeModel string
	referer    string
	appTitle   string
	httpClient *http.Client
}

// OpenRouterOption customizes an OpenRouterClient.
type OpenRouterOption func(*OpenRouterClient)

// WithOpenRouterBaseURL overrides the API base URL. Intended for tests
// injecting an httptest server.
func WithOpenRouterBaseURL(baseURL string) OpenRouterOption {
	return func(c *OpenRouterClient) { c.baseURL = baseURL }
}

// WithOpenRouterModel overrides the chat model.
func WithOpenRouterModel(m string) OpenRouterOption {
	return func(c *OpenRouterClient) {
		if m != "" {
			c.model = m
		}
	}
}

// WithOpenRouterHTTPClient overrides the underlying HTTP client.
func WithOpenRouterHTTPClient(hc *http.Client) OpenRouterOption {
	return func(c *OpenRouterClient) { c.httpClient = hc }
}

// NewOpenRouterClient creates an OpenRouter client with a bounded request
// timeout. referer and appTitle are sent as HTTP-Referer and X-Title.
func NewOpenRouterClient(referer, appTitle string, opts ...OpenRouterOption) *OpenRouterClient {
	c := &OpenRouterClient{
		baseURL:    defaultOpenRouterBaseURL,
		model:      defaultOpenRouterModel,
		probeModel: defaultOpenRouterProbeModel,
		referer:    referer,
		appTitle:   appTitle,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type openRouterRequest struct {
	Model    string              `json:"model"`
	Messages []openRouterMessage `json:"messages"`
}

type openRouterResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *providerErrorBody `json:"error"`
}

// providerErrorBody is the error envelope shared by both providers:
// {"error": {"message": "...", "code": ...}}.
type providerErrorBody struct {
	Message string `json:"message"`
	Code    any    `json:"code"`
	Status  string `json:"status"`
}

// Send submits the history plus one new user message and returns the reply
// text from the first choice.
func (c *OpenRouterClient) Send(ctx context.Context, apiKey string, history []model.Turn, message string) (string, error) {
	return c.complete(ctx, apiKey, c.model, toOpenRouterMessages(history, message))
}

// Validate issues a minimal single-turn probe against a free-tier model.
func (c *OpenRouterClient) Validate(ctx context.Context, apiKey string) error {
	_, err := c.complete(ctx, apiKey, c.probeModel, []openRouterMessage{{Role: "user", Content: "Test"}})
	return err
}

func (c *OpenRouterClient) complete(ctx context.Context, apiKey, chatModel string, messages []openRouterMessage) (string, error) {
	body, err := json.Marshal(openRouterRequest{Model: chatModel, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal openrouter request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build openrouter request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.appTitle != "" {
		req.Header.Set("X-Title", c.appTitle)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &model.Failure{
			Kind:     model.FailureTransport,
			Provider: model.ProviderOpenRouter,
			Message:  err.Error(),
			Cause:    err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", openRouterStatusFailure(resp.StatusCode, resp.Body)
	}

	var out openRouterResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &model.Failure{
			Kind:     model.FailureMalformedResponse,
			Provider: model.ProviderOpenRouter,
			Message:  "unexpected response format from OpenRouter",
			Cause:    err,
		}
	}
	// OpenRouter can report an error envelope under HTTP 200.
	if out.Error != nil && out.Error.Message != "" {
		return "", &model.Failure{
			Kind:     model.FailureProvider,
			Provider: model.ProviderOpenRouter,
			Message:  out.Error.Message,
		}
	}
	if len(out.Choices) == 0 {
		return "", &model.Failure{
			Kind:     model.FailureMalformedResponse,
			Provider: model.ProviderOpenRouter,
			Message:  "unexpected response format from OpenRouter",
		}
	}
	return out.Choices[0].Message.Content, nil
}

// openRouterStatusFailure classifies a non-2xx response. 401 and 403 are
// tagged as auth at this detection point; everything else is a provider
// failure carrying the upstream error message when present.
func openRouterStatusFailure(status int, body io.Reader) *model.Failure {
	message := "OpenRouter API error"
	var envelope struct {
		Error *providerErrorBody `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	kind := model.FailureProvider
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = model.FailureAuth
	}
	return &model.Failure{
		Kind:       kind,
		Provider:   model.ProviderOpenRouter,
		HTTPStatus: status,
		Message:    message,
	}
}
