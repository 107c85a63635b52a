package model

import "strings"

// Provider identifies which LLM backend a credential belongs to.
type Provider string

const (
	// ProviderGoogle is the Google Gemini generateContent REST API.
	ProviderGoogle Provider = "google"
	// ProviderOpenRouter is the OpenRouter OpenAI-compatible chat completions API.
	ProviderOpenRouter Provider = "openrouter"
)

// openRouterKeyPrefix is the documented prefix of OpenRouter API keys.
const openRouterKeyPrefix = "sk-or-"

// ClassifyCredential determines the provider for an API key by its prefix.
// Keys starting with "sk-or-" belong to OpenRouter; everything else is
// treated as a Google Gemini key. There is no unrecognized outcome: a key
// that belongs to neither provider is classified as Google and fails when
// first used against the live API.
func ClassifyCredential(apiKey string) Provider {
	if strings.HasPrefix(apiKey, openRouterKeyPrefix) {
		return ProviderOpenRouter
	}
	return ProviderGoogle
}
