package azureopenai

/*
	AZURE OPENAI CHAT COMPLETIONS API - REQUEST TYPES
*/

// chatCompletionRequest represents the request body for a deployment-scoped
// chat completions call. The model is implied by the deployment in the URL
// path, so there is no model field.
type chatCompletionRequest struct {
	Messages      []chatMessage  `json:"messages"`
	MaxTokens     *int           `json:"max_tokens,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	Stream        *bool          `json:"stream,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatMessage is a single message in the vendor schema. Content is either a
// plain string or a []contentPart array for multimodal user messages.
type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content,omitempty"`
}

type contentPart struct {
	Type     string           `json:"type"` // "text" or "image_url"
	Text     string           `json:"text,omitempty"`
	ImageURL *contentImageURL `json:"image_url,omitempty"`
}

type contentImageURL struct {
	URL string `json:"url"`
}

/*
	AZURE OPENAI CHAT COMPLETIONS API - RESPONSE TYPES
*/

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
	FinishReason string             `json:"finish_reason"`
}

// chatChoiceMessage carries the assistant reply. Context is present when the
// deployment augments the reply with "On Your Data" retrieval results.
type chatChoiceMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content,omitempty"`
	Context   *messageContext  `json:"context,omitempty"`
	ToolCalls []vendorToolCall `json:"tool_calls,omitempty"`
}

// messageContext is the "On Your Data" augmentation envelope.
type messageContext struct {
	Citations []vendorCitation `json:"citations,omitempty"`
	Intent    string           `json:"intent,omitempty"`
}

// vendorCitation is one retrieval citation as Azure emits it.
type vendorCitation struct {
	Content  string `json:"content,omitempty"`
	Title    string `json:"title,omitempty"`
	URL      string `json:"url,omitempty"`
	Filepath string `json:"filepath,omitempty"`
	ChunkID  string `json:"chunk_id,omitempty"`
}

// vendorToolCall is one tool/function invocation emitted by the model. In
// streaming mode Index identifies the call a fragment belongs to.
type vendorToolCall struct {
	Index    *int               `json:"index,omitempty"`
	ID       string             `json:"id,omitempty"`
	Type     string             `json:"type,omitempty"`
	Function vendorFunctionCall `json:"function"`
}

type vendorFunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type chatCompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

/*
	AZURE OPENAI CHAT COMPLETIONS API - STREAMING TYPES
*/

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

// streamChunkDelta is the incremental payload of one streaming choice. An
// "On Your Data" deployment sends the citation context in a dedicated
// assistant-role delta before any content deltas.
type streamChunkDelta struct {
	Role      string           `json:"role,omitempty"`
	Content   *string          `json:"content,omitempty"`
	Context   *messageContext  `json:"context,omitempty"`
	ToolCalls []vendorToolCall `json:"tool_calls,omitempty"`
}
