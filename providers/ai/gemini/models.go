package gemini

import "encoding/json"

/*
	GEMINI API - REQUEST TYPES
*/

// generateContentRequest represents the request body for the
// generateContent and streamGenerateContent endpoints.
type generateContentRequest struct {
	Contents          []content          `json:"contents"`
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig  `json:"generationConfig,omitempty"`
}

// systemInstruction carries the system prompt, which Gemini keeps separate
// from the conversation contents.
type systemInstruction struct {
	Parts []part `json:"parts"`
}

// content represents a content block with role and parts. Gemini uses
// "model" where other vendors use "assistant".
type content struct {
	Role  string `json:"role,omitempty"` // "user" or "model"
	Parts []part `json:"parts"`
}

// part represents a content part: text, a function call, or inline/URI
// media.
type part struct {
	Text         string        `json:"text,omitempty"`
	FunctionCall *functionCall `json:"functionCall,omitempty"`
	InlineData   *inlineData   `json:"inlineData,omitempty"`
	FileData     *fileData     `json:"fileData,omitempty"`
}

// inlineData represents inline base64-encoded media.
type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// fileData represents media referenced by URI.
type fileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

// functionCall represents a function call emitted by the model.
type functionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// generationConfig represents generation parameters.
type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

/*
	GEMINI API - RESPONSE TYPES
*/

// generateContentResponse represents both the synchronous response and one
// streaming SSE snapshot.
type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates,omitempty"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *usageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
	ResponseID     string          `json:"responseId,omitempty"`
}

// candidate represents a response candidate.
type candidate struct {
	Content          *content          `json:"content,omitempty"`
	FinishReason     string            `json:"finishReason,omitempty"`
	CitationMetadata *citationMetadata `json:"citationMetadata,omitempty"`
	Index            int               `json:"index,omitempty"`
}

// citationMetadata lists the sources a candidate's text was drawn from.
type citationMetadata struct {
	CitationSources []citationSource `json:"citationSources,omitempty"`
}

// citationSource is one cited source with the text span it supports.
type citationSource struct {
	StartIndex int    `json:"startIndex,omitempty"`
	EndIndex   int    `json:"endIndex,omitempty"`
	URI        string `json:"uri,omitempty"`
	License    string `json:"license,omitempty"`
}

// promptFeedback reports prompt-level blocking decisions.
type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// usageMetadata reports token consumption, typically on the final chunk in
// streaming mode.
type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount      int `json:"totalTokenCount,omitempty"`
}
