// Package adapter translates OpenAI-compatible chat requests into the flat
// prompt-plus-attachments call the Gemini web backend understands.
package adapter

import (
	"encoding/json"
)

// OpenAI-compatible request/response types.
// These types mirror the OpenAI API format for maximum compatibility.

// ChatRequest represents an OpenAI chat completion request.
type ChatRequest struct {
	// Model specifies which model to use (e.g., "gemini-2.5-flash").
	Model string `json:"model"`

	// Messages contains the conversation for this turn. An empty sequence is
	// degenerate but not rejected; it produces an empty prompt.
	Messages []Message `json:"messages"`

	// Stream enables server-sent events framing of the reply. Optional.
	Stream bool `json:"stream,omitempty"`
}

// Message is a single message in the conversation. Role is passed through
// unchecked; Content is either a plain string or a list of typed parts.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent holds the two shapes OpenAI allows for message content:
// a bare JSON string, or an array of content-part objects.
type MessageContent struct {
	// Text carries the string form. Meaningful only when Parts is nil.
	Text string

	// Parts carries the array form in source order.
	Parts []ContentPart

	// provided records whether the content key appeared in the message at
	// all. A message without it contributes nothing to the prompt, while an
	// explicit empty string still joins verbatim.
	provided bool
}

// UnmarshalJSON accepts either a JSON string or an array of parts.
func (m *MessageContent) UnmarshalJSON(data []byte) error {
	m.provided = true

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		m.Text = s
		m.Parts = nil
		return nil
	}

	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return &ValidationError{Field: "content", Reason: "must be a string or an array of content parts"}
	}
	m.Parts = parts
	return nil
}

// MarshalJSON renders the array form when parts are present.
func (m MessageContent) MarshalJSON() ([]byte, error) {
	if m.Parts != nil {
		return json.Marshal(m.Parts)
	}
	return json.Marshal(m.Text)
}

// Content part type tags. Any other tag is silently skipped.
const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
)

// ContentPart is one element of the array form of message content.
// The Type tag selects which of the remaining fields is meaningful.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL wraps an image reference. Only data URLs
// (data:image/<subtype>;base64,<payload>) are decoded.
type ImageURL struct {
	URL string `json:"url"`
}

// ChatMessage is the message shape used in responses.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse represents a non-streaming chat completion response.
type ChatResponse struct {
	// ID is the unique identifier for this completion.
	ID string `json:"id"`

	// Object is always "chat.completion".
	Object string `json:"object"`

	// Created is the Unix timestamp of when the completion was created.
	Created int64 `json:"created"`

	// Model echoes the requested model.
	Model string `json:"model"`

	// Choices contains the single generated completion.
	Choices []Choice `json:"choices"`

	// Usage is always zero: the web backend exposes no token accounting.
	Usage Usage `json:"usage"`
}

// Choice represents a single completion choice.
type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// Usage contains token usage statistics. All fields are reported as zero
// rather than omitted or estimated.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelCard describes one entry of GET /v1/models.
type ModelCard struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the envelope of GET /v1/models.
type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelCard `json:"data"`
}

// StreamResponse is one SSE chunk of a streaming completion.
type StreamResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice carries the incremental delta of one chunk.
type StreamChoice struct {
	Index        int          `json:"index"`
	Delta        DeltaMessage `json:"delta"`
	FinishReason *string      `json:"finish_reason"`
}

// DeltaMessage is the partial message inside a stream chunk.
type DeltaMessage struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}
