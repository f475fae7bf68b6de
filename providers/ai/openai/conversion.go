package openai

import (
	"llmgate/internal/utils"
	"llmgate/providers/ai"
)

// requestToChatCompletion converts an ai.ChatRequest into the vendor request
// body. The system prompt becomes a leading system message; multimodal user
// messages are expanded into content-part arrays.
func requestToChatCompletion(request ai.ChatRequest, model string) chatCompletionRequest {
	chatRequest := chatCompletionRequest{Model: model}

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
			chatRequest.MaxCompletionTokens = utils.Ptr(cfg.MaxOutputTokens)
		}
		if cfg.Temperature > 0 {
			chatRequest.Temperature = utils.Ptr(float64(cfg.Temperature))
		}
	}

	return chatRequest
}

// messageToChatMessage maps one normalized message to the vendor schema.
// Messages without image parts are sent as plain strings, which keeps the
// request compatible with models that reject content arrays.
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
// [ai.ChatResponse] format. Only the first choice is considered; the gateway
// never requests multiple choices.
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
		if choice.Message != nil {
			chatResponse.Content = choice.Message.Content
		}
		chatResponse.FinishReason = choice.FinishReason
	}

	return chatResponse
}
