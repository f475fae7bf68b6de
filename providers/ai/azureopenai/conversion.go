package azureopenai

import (
	"llmgate/internal/utils"
	"llmgate/providers/ai"
)

// requestToChatCompletion converts an ai.ChatRequest into the vendor request
// body. The system prompt becomes a leading system message; multimodal user
// messages are expanded into content-part arrays.
func requestToChatCompletion(request ai.ChatRequest) chatCompletionRequest {
	var chatRequest chatCompletionRequest

	if request.SystemPrompt != "" {
		chatRequest.Messages = append(chatRequest.Messages, chatMessage{
			Role:    "system",
			Content: request.SystemPrompt,
		})
	}

	for _, message := range request.Messages {
		chatRequest.Messages = append(chatRequest.Messages, messageToChatMessage(message))
	}

	if cfg := request.GenerationConfig; cfg != nil {
		if cfg.MaxOutputTokens > 0 {
			chatRequest.MaxTokens = utils.Ptr(cfg.MaxOutputTokens)
		}
		if cfg.Temperature > 0 {
			chatRequest.Temperature = utils.Ptr(float64(cfg.Temperature))
		}
	}

	return chatRequest
}

// messageToChatMessage maps one normalized message to the vendor schema.
func messageToChatMessage(message ai.Message) chatMessage {
	if !message.HasImages() {
		return chatMessage{
			Role:    string(message.Role),
			Content: message.PlainText(),
		}
	}

	var parts []contentPart
	for _, part := range message.ContentParts {
		switch part.Type {
		case ai.ContentPartText:
			parts = append(parts, contentPart{Type: "text", Text: part.Text})
		case ai.ContentPartImage:
			url := part.ImageURL
			if url == "" && part.ImageData != "" {
				url = "data:" + part.ImageMimeType + ";base64," + part.ImageData
			}
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &contentImageURL{URL: url}})
		}
	}
	return chatMessage{Role: string(message.Role), Content: parts}
}

// chatCompletionToResponse maps a complete vendor response to the generic
// [ai.ChatResponse] format, lifting retrieval citations and tool calls out
// of the first choice.
func chatCompletionToResponse(response *chatCompletionResponse) *ai.ChatResponse {
	chatResponse := &ai.ChatResponse{
		Id:      response.ID,
		Model:   response.Model,
		Object:  response.Object,
		Created: response.Created,
	}

	if response.Usage != nil {
		chatResponse.Usage = &ai.Usage{
			PromptTokens:     response.Usage.PromptTokens,
			CompletionTokens: response.Usage.CompletionTokens,
			TotalTokens:      response.Usage.TotalTokens,
		}
	}

	if len(response.Choices) > 0 {
		choice := response.Choices[0]
		chatResponse.FinishReason = choice.FinishReason
		if choice.Message != nil {
			chatResponse.Content = choice.Message.Content
			if choice.Message.Context != nil {
				for _, citation := range choice.Message.Context.Citations {
					chatResponse.Citations = append(chatResponse.Citations, citationToAI(citation))
				}
			}
			for _, toolCall := range choice.Message.ToolCalls {
				chatResponse.ToolResults = append(chatResponse.ToolResults, toolCallToAI(toolCall))
			}
		}
	}

	return chatResponse
}

// citationToAI maps one "On Your Data" citation to the normalized form. The
// file path is the preferred stable reference, falling back to URL and then
// title for sources that lack one.
func citationToAI(citation vendorCitation) ai.Citation {
	sourceRef := citation.Filepath
	if sourceRef == "" {
		sourceRef = citation.URL
	}
	if sourceRef == "" {
		sourceRef = citation.Title
	}
	return ai.Citation{
		SourceRef: sourceRef,
		Title:     citation.Title,
		URL:       citation.URL,
		Snippet:   citation.Content,
	}
}

func toolCallToAI(toolCall vendorToolCall) ai.ToolResult {
	return ai.ToolResult{
		ID:      toolCall.ID,
		Name:    toolCall.Function.Name,
		Payload: toolCall.Function.Arguments,
	}
}
