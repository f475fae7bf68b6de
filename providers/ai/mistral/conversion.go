package mistral

import (
	"llmgate/internal/utils"
	"llmgate/providers/ai"
)

// requestToChatCompletion converts an ai.ChatRequest into the vendor request
// body. The system prompt becomes a leading system message. Callers reject
// image parts before this point, so content is always flattened to text.
func requestToChatCompletion(request ai.ChatRequest, model string) chatCompletionRequest {
	chatRequest := chatCompletionRequest{Model: model}

	if request.SystemPrompt != "" {
		chatRequest.Messages = append(chatRequest.Messages, chatMessage{
			Role:    "system",
			Content: request.SystemPrompt,
		})
	}

	for _, message := range request.Messages {
		chatRequest.Messages = append(chatRequest.Messages, chatMessage{
			Role:    string(message.Role),
			Content: message.PlainText(),
		})
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

// chatCompletionToResponse maps a complete vendor response to the generic
// [ai.ChatResponse] format. Only the first choice is considered.
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
