package anthropic

import (
	"encoding/json"
	"fmt"
)

/*
	ANTHROPIC MESSAGES API - REQUEST TYPES
*/

// anthropicRequest represents the request body for Anthropic's Messages API.
// MaxTokens is required by Anthropic on every request.
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

// anthropicMessage represents a single message in the conversation. Roles
// are limited to "user" and "assistant"; system instructions travel in the
// top-level System field.
type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

// anthropicContentBlock is a discriminated union via the Type field:
//   - "text": Text
//   - "image": Source (base64 or url)
type anthropicContentBlock struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

// anthropicSource represents an image source (base64 inline or URL
// reference).
type anthropicSource struct {
	Type      string `json:"type"`                 // "base64" or "url"
	MediaType string `json:"media_type,omitempty"` // MIME type (for base64)
	Data      string `json:"data,omitempty"`       // Base64-encoded data
	URL       string `json:"url,omitempty"`        // URL reference
}

/*
	ANTHROPIC MESSAGES API - RESPONSE TYPES
*/

// anthropicResponse represents the response from Anthropic's Messages API.
type anthropicResponse struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"` // "message"
	Role       string                 `json:"role"` // "assistant"
	Content    []responseContentBlock `json:"content"`
	Model      string                 `json:"model"`
	StopReason string                 `json:"stop_reason"`
	Usage      anthropicUsage         `json:"usage"`
}

// responseContentBlock represents a content block in the response. Unknown
// type values are silently ignored during conversion for
// forward-compatibility.
type responseContentBlock struct {
	Type      string              `json:"type"` // "text", "tool_use"
	Text      string              `json:"text,omitempty"`
	Citations []anthropicCitation `json:"citations,omitempty"` // For type="text" with grounded sources
	ID        string              `json:"id,omitempty"`        // For type="tool_use"
	Name      string              `json:"name,omitempty"`      // For type="tool_use"
	Input     json.RawMessage     `json:"input,omitempty"`     // For type="tool_use" (arbitrary JSON)
}

// anthropicCitation is one source reference attached to a text block.
type anthropicCitation struct {
	Type          string `json:"type,omitempty"`
	URL           string `json:"url,omitempty"`
	Title         string `json:"title,omitempty"`
	CitedText     string `json:"cited_text,omitempty"`
	DocumentTitle string `json:"document_title,omitempty"`
}

// anthropicUsage reports token consumption for a single request.
type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

/*
	ANTHROPIC SSE STREAMING - WIRE TYPES

	Anthropic streaming uses SSE with "event:" lines to identify event
	types, followed by "data:" lines containing JSON payloads. The
	SSEScanner only processes "data:" lines, so the "type" field inside the
	JSON payload discriminates events.

	Event lifecycle:
	  message_start → content_block_start → content_block_delta →
	  content_block_stop → message_delta → message_stop
*/

// anthropicStreamEvent is the top-level envelope for all Anthropic SSE
// events. The Type field discriminates which optional fields are populated.
type anthropicStreamEvent struct {
	Type         string                `json:"type"`
	Message      *anthropicResponse    `json:"message,omitempty"`       // For "message_start"
	Index        int                   `json:"index,omitempty"`         // For content_block_start/delta/stop
	ContentBlock *responseContentBlock `json:"content_block,omitempty"` // For "content_block_start"
	Delta        *streamDelta          `json:"delta,omitempty"`         // For "content_block_delta" and "message_delta"
	Usage        *anthropicUsage       `json:"usage,omitempty"`         // For "message_delta"
	Error        *anthropicError       `json:"error,omitempty"`         // For "error" events
}

// streamDelta carries incremental content within a content_block_delta or
// message_delta event. The Type field discriminates the kind of delta:
//   - "text_delta": Text is populated
//   - "citations_delta": Citation is populated
//   - "input_json_delta": PartialJSON is populated (tool call arguments)
//   - (no type on message_delta): StopReason is populated
type streamDelta struct {
	Type        string             `json:"type,omitempty"`
	Text        string             `json:"text,omitempty"`
	Citation    *anthropicCitation `json:"citation,omitempty"`
	PartialJSON string             `json:"partial_json,omitempty"`
	StopReason  string             `json:"stop_reason,omitempty"`
}

// anthropicError represents an error event in the Anthropic SSE stream.
type anthropicError struct {
	Type    string `json:"type"`    // Error type (e.g. "overloaded_error", "api_error")
	Message string `json:"message"` // Human-readable error description
}

// unmarshalStreamEvent parses a JSON payload string into an
// anthropicStreamEvent. Returns an error if the JSON is invalid or the type
// field is missing.
func unmarshalStreamEvent(payload string) (*anthropicStreamEvent, error) {
	var event anthropicStreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, err
	}
	if event.Type == "" {
		return nil, fmt.Errorf("missing type field in stream event")
	}
	return &event, nil
}
