package openai

/*
	OPENAI CHAT COMPLETIONS API - REQUEST TYPES
*/

// chatCompletionRequest represents the request body for the chat completions
// endpoint.
type chatCompletionRequest struct {
	Model               string         `json:"model"`
	Messages            []chatMessage  `json:"messages"`
	MaxCompletionTokens *int           `json:"max_completion_tokens,omitempty"`
	Temperature         *float64       `json:"temperature,omitempty"`
	Stream              *bool          `json:"stream,omitempty"`
	StreamOptions       *streamOptions `json:"stream_options,omitempty"`
}

// streamOptions controls streaming behaviour; include_usage makes the final
// chunk carry token usage.
type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatMessage is a single message in the vendor schema. Content is either a
// plain string or a []contentPart array for multimodal user messages.
type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content,omitempty"`
}

// contentPart is one element of a multimodal content array.
type contentPart struct {
	Type     string           `json:"type"` // "text" or "image_url"
	Text     string           `json:"text,omitempty"`
	ImageURL *contentImageURL `json:"image_url,omitempty"`
}

type contentImageURL struct {
	URL string `json:"url"` // Remote URL or data: URI for inline images
}

/*
	OPENAI CHAT COMPLETIONS API - RESPONSE TYPES
*/

// chatCompletionResponse represents a complete (non-streaming) response.
type chatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []chatCompletionChoice `json:"choices"`
	Usage   *chatCompletionUsage   `json:"usage,omitempty"`
}

type chatCompletionChoice struct {
	Index        int                `json:"index"`
	Message      *chatChoiceMessage `json:"message,omitempty"`
	FinishReason string             `json:"finish_reason"` // "stop", "length", "content_filter"
}

type chatChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
}

type chatCompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

/*
	OPENAI CHAT COMPLETIONS API - STREAMING TYPES
*/

// chatCompletionStreamChunk is one SSE event payload in streaming mode.
type chatCompletionStreamChunk struct {
	ID      string               `json:"id"`
	Object  string               `json:"object"`
	Created int64                `json:"created"`
	Model   string               `json:"model"`
	Choices []streamChunkChoice  `json:"choices"`
	Usage   *chatCompletionUsage `json:"usage,omitempty"`
}

type streamChunkChoice struct {
	Index        int              `json:"index"`
	Delta        streamChunkDelta `json:"delta"`
	FinishReason *string          `json:"finish_reason,omitempty"`
}

type streamChunkDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}
