package gemini

import (
	"strconv"

	"llmgate/internal/utils"
	"llmgate/providers/ai"
)

// requestToGemini converts an ai.ChatRequest into the generateContent wire
// format. The system prompt travels in systemInstruction, and assistant
// messages are re-labelled with Gemini's "model" role.
func requestToGemini(request ai.ChatRequest) generateContentRequest {
	var geminiReq generateContentRequest

	if request.SystemPrompt != "" {
		geminiReq.SystemInstruction = &systemInstruction{
			Parts: []part{{Text: request.SystemPrompt}},
		}
	}

	for _, message := range request.Messages {
		geminiReq.Contents = append(geminiReq.Contents, messageToContent(message))
	}

	if cfg := request.GenerationConfig; cfg != nil {
		generation := &generationConfig{}
		if cfg.MaxOutputTokens > 0 {
			generation.MaxOutputTokens = utils.Ptr(cfg.MaxOutputTokens)
		}
		if cfg.Temperature > 0 {
			generation.Temperature = utils.Ptr(float64(cfg.Temperature))
		}
		geminiReq.GenerationConfig = generation
	}

	return geminiReq
}

// messageToContent maps one normalized message to the Gemini schema. Roles
// Gemini does not know (tool, error) degrade to "user" so history replays
// cleanly.
func messageToContent(message ai.Message) content {
	role := "user"
	if message.Role == ai.RoleAssistant {
		role = "model"
	}

	if len(message.ContentParts) == 0 {
		return content{Role: role, Parts: []part{{Text: message.Content}}}
	}

	var parts []part
	for _, contentPart := range message.ContentParts {
		switch contentPart.Type {
		case ai.ContentPartText:
			parts = append(parts, part{Text: contentPart.Text})
		case ai.ContentPartImage:
			if contentPart.ImageData != "" {
				parts = append(parts, part{InlineData: &inlineData{
					MimeType: contentPart.ImageMimeType,
					Data:     contentPart.ImageData,
				}})
			} else {
				parts = append(parts, part{FileData: &fileData{
					MimeType: contentPart.ImageMimeType,
					FileURI:  contentPart.ImageURL,
				}})
			}
		}
	}
	return content{Role: role, Parts: parts}
}

// geminiToResponse maps a complete generateContent response to the generic
// [ai.ChatResponse] format. Text parts of the first candidate are
// concatenated; function calls become tool results; citation sources are
// lifted out of the candidate metadata.
func geminiToResponse(response *generateContentResponse) *ai.ChatResponse {
	result := &ai.ChatResponse{
		Id:     response.ResponseID,
		Object: "generate_content_response",
	}

	if response.UsageMetadata != nil {
		result.Usage = &ai.Usage{
			PromptTokens:     response.UsageMetadata.PromptTokenCount,
			CompletionTokens: response.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      response.UsageMetadata.TotalTokenCount,
		}
	}

	if len(response.Candidates) == 0 {
		// A blocked prompt yields no candidates; surface the block reason as
		// the finish reason so callers can classify it.
		if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
			result.FinishReason = "content_filter"
		}
		return result
	}

	candidate := response.Candidates[0]
	result.FinishReason = mapFinishReason(candidate.FinishReason)

	if candidate.Content != nil {
		for _, contentPart := range candidate.Content.Parts {
			result.Content += contentPart.Text
			if contentPart.FunctionCall != nil {
				result.ToolResults = append(result.ToolResults, ai.ToolResult{
					Name:    contentPart.FunctionCall.Name,
					Payload: string(contentPart.FunctionCall.Args),
				})
			}
		}
	}

	if candidate.CitationMetadata != nil {
		for _, source := range candidate.CitationMetadata.CitationSources {
			result.Citations = append(result.Citations, citationSourceToAI(source))
		}
	}

	return result
}

// citationSourceToAI maps one citation source to the normalized form. Gemini
// citations carry no title or snippet; the URI doubles as the stable
// reference, falling back to the text span for sources without one.
func citationSourceToAI(source citationSource) ai.Citation {
	sourceRef := source.URI
	if sourceRef == "" {
		sourceRef = "span:" + strconv.Itoa(source.StartIndex) + "-" + strconv.Itoa(source.EndIndex)
	}
	return ai.Citation{
		SourceRef: sourceRef,
		URL:       source.URI,
	}
}

// mapFinishReason converts a Gemini finishReason value to the canonical
// finish reason vocabulary used across providers.
func mapFinishReason(geminiReason string) string {
	switch geminiReason {
	case "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION", "PROHIBITED_CONTENT":
		return "content_filter"
	case "":
		return ""
	default:
		return "stop"
	}
}
