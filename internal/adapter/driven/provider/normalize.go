// Package provider implements the ChatClient port for the two supported
// LLM backends: Google Gemini (generateContent REST) and OpenRouter
// (OpenAI-compatible chat completions).
package provider

import "github.com/sgrenier/chatbuddy/internal/domain/model"

// openRouterMessage is one entry of the OpenAI-style messages list.
type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// googlePart is one text fragment inside a Gemini content entry.
type googlePart struct {
	Text string `json:"text"`
}

// googleContent is one entry of the Gemini contents list. Gemini uses the
// role vocabulary user/model and nests text one level deeper than the
// OpenAI shape.
type googleContent struct {
	Role  string       `json:"role"`
	Parts []googlePart `json:"parts"`
}

// toOpenRouterMessages converts a provider-neutral history into the flat
// role/content list OpenRouter expects, preserving order, with the new user
// message appended last. Any speaker other than the user folds into
// "assistant".
func toOpenRouterMessages(history []model.Turn, message string) []openRouterMessage {
	messages := make([]openRouterMessage, 0, len(history)+1)
	for _, turn := range history {
		role := "assistant"
		if turn.Speaker == model.SpeakerUser {
			role = "user"
		}
		messages = append(messages, openRouterMessage{Role: role, Content: turn.Text})
	}
	return append(messages, openRouterMessage{Role: "user", Content: message})
}

// toGoogleContents converts a provider-neutral history into the Gemini
// contents list, preserving order, with the new user message appended last.
// Any speaker other than the user folds into "model". Gemini enforces
// strict user/model alternation on its side; a malformed history is passed
// through as-is and any rejection surfaces as a provider failure.
func toGoogleContents(history []model.Turn, message string) []googleContent {
	contents := make([]googleContent, 0, len(history)+1)
	for _, turn := range history {
		role := "model"
		if turn.Speaker == model.SpeakerUser {
			role = "user"
		}
		contents = append(contents, googleContent{Role: role, Parts: []googlePart{{Text: turn.Text}}})
	}
	return append(contents, googleContent{Role: "user", Parts: []googlePart{{Text: message}}})
}
