package anthropic

import (
	"llmgate/internal/utils"
	"llmgate/providers/ai"
)

// requestToAnthropic converts an ai.ChatRequest into the Messages API wire
// format. The system prompt travels in the top-level system field, and
// max_tokens falls back to a safe default because Anthropic rejects
// requests without one.
func requestToAnthropic(request ai.ChatRequest, model string) anthropicRequest {
	anthropicReq := anthropicRequest{
		Model:     model,
		System:    request.SystemPrompt,
		MaxTokens: defaultMaxTokens,
	}

	for _, message := range request.Messages {
		anthropicReq.Messages = append(anthropicReq.Messages, messageToAnthropic(message))
	}

	if cfg := request.GenerationConfig; cfg != nil {
		if cfg.MaxOutputTokens > 0 {
			anthropicReq.MaxTokens = cfg.MaxOutputTokens
		}
		if cfg.Temperature > 0 {
			anthropicReq.Temperature = utils.Ptr(float64(cfg.Temperature))
		}
	}

	return anthropicReq
}

// messageToAnthropic maps one normalized message to the Messages API schema.
// Anthropic only accepts "user" and "assistant" roles, so tool and error
// roles degrade to user messages carrying their text.
func messageToAnthropic(message ai.Message) anthropicMessage {
	role := string(message.Role)
	if role != "user" && role != "assistant" {
		role = "user"
	}

	if len(message.ContentParts) == 0 {
		return anthropicMessage{
			Role:    role,
			Content: []anthropicContentBlock{{Type: "text", Text: message.Content}},
		}
	}

	var blocks []anthropicContentBlock
	for _, part := range message.ContentParts {
		switch part.Type {
		case ai.ContentPartText:
			blocks = append(blocks, anthropicContentBlock{Type: "text", Text: part.Text})
		case ai.ContentPartImage:
			source := &anthropicSource{}
			if part.ImageData != "" {
				source.Type = "base64"
				source.MediaType = part.ImageMimeType
				source.Data = part.ImageData
			} else {
				source.Type = "url"
				source.URL = part.ImageURL
			}
			blocks = append(blocks, anthropicContentBlock{Type: "image", Source: source})
		}
	}
	return anthropicMessage{Role: role, Content: blocks}
}

// anthropicToResponse maps a complete Messages API response to the generic
// [ai.ChatResponse] format. Text blocks are concatenated; tool_use blocks
// become tool results; citations attached to text blocks are lifted out.
func anthropicToResponse(response *anthropicResponse) *ai.ChatResponse {
	result := &ai.ChatResponse{
		Id:           response.ID,
		Model:        response.Model,
		Object:       response.Type,
		FinishReason: mapStopReason(response.StopReason),
		Usage: &ai.Usage{
			PromptTokens:     response.Usage.InputTokens,
			CompletionTokens: response.Usage.OutputTokens,
			TotalTokens:      response.Usage.InputTokens + response.Usage.OutputTokens,
		},
	}

	for _, block := range response.Content {
		switch block.Type {
		case "text":
			result.Content += block.Text
			for _, citation := range block.Citations {
				result.Citations = append(result.Citations, citationToAI(citation))
			}
		case "tool_use":
			result.ToolResults = append(result.ToolResults, ai.ToolResult{
				ID:      block.ID,
				Name:    block.Name,
				Payload: string(block.Input),
			})
		}
	}

	return result
}

// citationToAI maps one vendor citation to the normalized form. The URL is
// the preferred stable reference, falling back to the document title.
func citationToAI(citation anthropicCitation) ai.Citation {
	sourceRef := citation.URL
	if sourceRef == "" {
		sourceRef = citation.DocumentTitle
	}
	if sourceRef == "" {
		sourceRef = citation.Title
	}
	title := citation.Title
	if title == "" {
		title = citation.DocumentTitle
	}
	return ai.Citation{
		SourceRef: sourceRef,
		Title:     title,
		URL:       citation.URL,
		Snippet:   citation.CitedText,
	}
}

// mapStopReason converts an Anthropic stop_reason value to the canonical
// finish reason vocabulary used across providers.
func mapStopReason(stopReason string) string {
	switch stopReason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "tool_use":
		return "tool_calls"
	case "":
		return ""
	default:
		return stopReason
	}
}
