package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sgrenier/chatbuddy/internal/domain/model"
	"github.com/sgrenier/chatbuddy/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ChatClient = (*GoogleClient)(nil)

const (
	defaultGoogleBaseURL = "https://generativelanguage.googleapis.com"
	defaultGoogleModel   = "gemini-2.0-flash-exp"
)

// GoogleClient implements the ChatClient port against the Gemini
// generateContent REST endpoint. The credential is passed as the "key"
// query parameter; there is no Authorization header.
type GoogleClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// GoogleOption customizes a GoogleClient.
type GoogleOption func(*GoogleClient)

// WithGoogleBaseURL overrides the API base URL. Intended for tests
// injecting an httptest server.
func WithGoogleBaseURL(baseURL string) GoogleOption {
	return func(c *GoogleClient) { c.baseURL = baseURL }
}

// WithGoogleModel overrides the chat model.
func WithGoogleModel(m string) GoogleOption {
	return func(c *GoogleClient) {
		if m != "" {
			c.model = m
		}
	}
}

// WithGoogleHTTPClient overrides the underlying HTTP client.
func WithGoogleHTTPClient(hc *http.Client) GoogleOption {
	return func(c *GoogleClient) { c.httpClient = hc }
}

// NewGoogleClient creates a Gemini client with a bounded request timeout.
func NewGoogleClient(opts ...GoogleOption) *GoogleClient {
	c := &GoogleClient{
		baseURL:    defaultGoogleBaseURL,
		model:      defaultGoogleModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type googleRequest struct {
	Contents []googleContent `json:"contents"`
}

type googleResponse struct {
	Candidates []struct {
		Content struct {
			Parts []googlePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *providerErrorBody `json:"error"`
}

// Send submits the history plus one new user message and returns the text
// of the first candidate's first content part.
func (c *GoogleClient) Send(ctx context.Context, apiKey string, history []model.Turn, message string) (string, error) {
	return c.generate(ctx, apiKey, toGoogleContents(history, message))
}

// Validate issues a minimal single-turn probe.
func (c *GoogleClient) Validate(ctx context.Context, apiKey string) error {
	_, err := c.generate(ctx, apiKey, []googleContent{{Role: "user", Parts: []googlePart{{Text: "Test"}}}})
	return err
}

func (c *GoogleClient) generate(ctx context.Context, apiKey string, contents []googleContent) (string, error) {
	body, err := json.Marshal(googleRequest{Contents: contents})
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &model.Failure{
			Kind:     model.FailureTransport,
			Provider: model.ProviderGoogle,
			Message:  err.Error(),
			Cause:    err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", googleStatusFailure(resp.StatusCode, resp.Body)
	}

	var out googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", malformedGeminiFailure(err)
	}
	// Gemini can report an error envelope under HTTP 200.
	if out.Error != nil && out.Error.Message != "" {
		return "", classifyGoogleError(0, out.Error.Message)
	}
	// The reply lives at candidates[0].content.parts[0].text. A success
	// status with that path absent is a malformed response, not a crash.
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", malformedGeminiFailure(nil)
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

func malformedGeminiFailure(cause error) *model.Failure {
	return &model.Failure{
		Kind:     model.FailureMalformedResponse,
		Provider: model.ProviderGoogle,
		Message:  "unexpected response format from Gemini",
		Cause:    cause,
	}
}

// googleStatusFailure classifies a non-2xx response from Gemini.
func googleStatusFailure(status int, body io.Reader) *model.Failure {
	message := "Gemini API error"
	var envelope struct {
		Error *providerErrorBody `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}
	return classifyGoogleError(status, message)
}

// classifyGoogleError assigns the failure kind from the status code and the
// provider's own invalid-key markers. Gemini reports a bad key as HTTP 400
// with "API key not valid" / "API_KEY_INVALID" rather than a 401, so the
// message markers are part of the detection point, not a later heuristic.
func classifyGoogleError(status int, message string) *model.Failure {
	kind := model.FailureProvider
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = model.FailureAuth
	case strings.Contains(message, "API_KEY_INVALID") || strings.Contains(message, "API key not valid"):
		kind = model.FailureAuth
	}
	return &model.Failure{
		Kind:       kind,
		Provider:   model.ProviderGoogle,
		HTTPStatus: status,
		Message:    message,
	}
}
