package ai

/*
	##### ADAPTER INPUT #####
*/

// ChatRequest represents a normalized request handed to a provider adapter.
type ChatRequest struct {
	Model            string            `json:"model,omitempty"`             // Model or deployment identifier
	Messages         []Message         `json:"messages"`                    // Conversation in chronological order, oldest first
	SystemPrompt     string            `json:"system_prompt,omitempty"`     // Optional system prompt
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"` // Optional generation configuration
}

// GenerationConfig carries the tunable generation parameters the gateway
// controls. MaxOutputTokens is always set by the gateway from the token
// budget table; adapters must translate it to their vendor's output-limit
// parameter.
type GenerationConfig struct {
	MaxOutputTokens int     `json:"max_output_tokens,omitempty"` // Output token ceiling for the response
	Temperature     float32 `json:"temperature,omitempty"`       // Sampling temperature; zero means vendor default
}

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // System instructions (request-level, not part of history)
	RoleUser      MessageRole = "user"      // End-user message
	RoleAssistant MessageRole = "assistant" // Model response
	RoleTool      MessageRole = "tool"      // Tool/citation payload surfaced to the caller
	RoleError     MessageRole = "error"     // Terminal error message on the normalized wire
)

// ContentPartType discriminates the members of a multimodal message.
type ContentPartType string

const (
	ContentPartText  ContentPartType = "text"
	ContentPartImage ContentPartType = "image"
)

// ContentPart is one ordered element of a multimodal user message. Image
// parts carry either a URL or inline base64 data with its MIME type.
type ContentPart struct {
	Type          ContentPartType `json:"type"`
	Text          string          `json:"text,omitempty"`            // For type=text
	ImageURL      string          `json:"image_url,omitempty"`       // For type=image, remote reference
	ImageData     string          `json:"image_data,omitempty"`      // For type=image, base64 inline data
	ImageMimeType string          `json:"image_mime_type,omitempty"` // MIME type for inline data (e.g. image/png)
}

// Message represents a single message in a conversation. Plain text
// messages use Content; multimodal user messages use ContentParts instead.
// Only user messages may carry image parts — adapters without vision fail
// fast with a [CapabilityError] rather than dropping the image.
type Message struct {
	Role         MessageRole   `json:"role"`
	Content      string        `json:"content,omitempty"`
	ContentParts []ContentPart `json:"content_parts,omitempty"`
}

// HasImages reports whether the message carries at least one image part.
func (m Message) HasImages() bool {
	for _, part := range m.ContentParts {
		if part.Type == ContentPartImage {
			return true
		}
	}
	return false
}

// PlainText flattens the message to text only, joining text parts in order.
// Image parts are skipped; adapters call this when translating for vendors
// that take plain string content.
func (m Message) PlainText() string {
	if len(m.ContentParts) == 0 {
		return m.Content
	}
	text := ""
	for _, part := range m.ContentParts {
		if part.Type == ContentPartText {
			if text != "" {
				text += "\n"
			}
			text += part.Text
		}
	}
	return text
}

/*
	##### ADAPTER OUTPUT #####
*/

// Usage reports token consumption for a single request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// Citation is one source reference extracted from a vendor reply. SourceRef
// is the stable identity used for deduplication; display numbering is
// assigned downstream by the normalizer, not by adapters.
type Citation struct {
	SourceRef string `json:"source_ref"`        // Stable reference (file path, URL, or vendor citation id)
	Title     string `json:"title,omitempty"`   // Human-readable source title
	URL       string `json:"url,omitempty"`     // Source link when the vendor provides one
	Snippet   string `json:"snippet,omitempty"` // Quoted source excerpt
}

// ToolResult is a vendor-emitted tool/function payload. Payload holds the
// vendor's raw JSON arguments or output; parsing it leniently is the
// consumer's concern.
type ToolResult struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Payload string `json:"payload"`
}

// ChatResponse represents the completed response from a synchronous call.
type ChatResponse struct {
	Id           string       `json:"id"`
	Model        string       `json:"model"`
	Object       string       `json:"object"`
	Created      int64        `json:"created"`
	Content      string       `json:"content"`
	Citations    []Citation   `json:"citations,omitempty"`
	ToolResults  []ToolResult `json:"tool_results,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
	Usage        *Usage       `json:"usage,omitempty"`
}
