package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"llmgate/internal/utils"
	"llmgate/providers/ai"
	"llmgate/providers/observability"
)

// StreamMessage implements [ai.StreamProvider] using the
// streamGenerateContent endpoint with alt=sse.
//
// Each Gemini SSE event is a generateContentResponse whose parts carry the
// incremental text for that event, so part text passes through as the
// content delta unchanged. Citation sources repeat across events and are
// deduplicated by source identity.
func (provider *GeminiProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	model := request.Model
	if model == "" {
		model = provider.model
	}

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, string(ai.ProviderGemini)),
			observability.String(observability.AttrLLMEndpoint, provider.baseURL),
			observability.String(observability.AttrLLMModel, model),
			observability.Bool("llm.streaming", true),
		)
	}

	if observer != nil {
		observer.Trace(ctx, "Gemini provider preparing streaming request",
			observability.String(observability.AttrLLMProvider, string(ai.ProviderGemini)),
			observability.String(observability.AttrLLMModel, model),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		)
	}

	streamURL := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", provider.baseURL, model)
	geminiReq := requestToGemini(request)

	httpResponse, err := utils.DoPostStream(ctx, provider.client, streamURL, "", geminiReq,
		utils.HeaderOption{Key: apiKeyHeader, Value: provider.apiKey},
	)
	if err != nil {
		if observer != nil {
			observer.Trace(ctx, "Streaming HTTP request failed", observability.Error(err))
		}
		return nil, err
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		// Chunk payloads may be split across reads; the fragment buffer
		// only releases a payload once it parses as complete JSON.
		var fragments utils.FragmentBuffer

		// state remembers which citation sources earlier chunks already
		// delivered.
		state := streamState{seenCitations: make(map[string]bool)}

		for {
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				return
			}
			if sseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("SSE read error: %w", sseErr))
				return
			}

			for _, document := range fragments.Feed(payload) {
				var chunk generateContentResponse
				if parseErr := json.Unmarshal(document, &chunk); parseErr != nil {
					yield(ai.StreamEvent{}, fmt.Errorf("failed to parse streaming chunk: %w", parseErr))
					return
				}

				for _, event := range chunkToStreamEvents(&chunk, &state) {
					if !yield(event, nil) {
						return
					}
				}
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}

// streamState tracks citation sources already surfaced so repeated
// citationMetadata across chunks is not re-emitted.
type streamState struct {
	seenCitations map[string]bool
}

// chunkToStreamEvents converts one streamed generateContentResponse into
// events: unseen citation sources, function calls, the chunk's own part text
// as the content delta, trailing usage, and the finish reason.
func chunkToStreamEvents(chunk *generateContentResponse, state *streamState) []ai.StreamEvent {
	var events []ai.StreamEvent

	if len(chunk.Candidates) == 0 {
		if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
			events = append(events, ai.StreamEvent{
				Type:         ai.StreamEventDone,
				FinishReason: "content_filter",
			})
		}
		return events
	}

	candidate := chunk.Candidates[0]

	if candidate.Content != nil {
		// Citation sources surface before the text they ground. Gemini
		// repeats the accumulated source list on later chunks, so each
		// source is emitted only the first time its identity appears.
		if candidate.CitationMetadata != nil {
			for _, source := range candidate.CitationMetadata.CitationSources {
				converted := citationSourceToAI(source)
				if state.seenCitations[converted.SourceRef] {
					continue
				}
				state.seenCitations[converted.SourceRef] = true
				events = append(events, ai.StreamEvent{
					Type:     ai.StreamEventCitation,
					Citation: &converted,
				})
			}
		}

		var textParts []string
		for _, contentPart := range candidate.Content.Parts {
			if contentPart.Text != "" {
				textParts = append(textParts, contentPart.Text)
			}
			// Function calls are sent whole within their chunk.
			if contentPart.FunctionCall != nil {
				events = append(events, ai.StreamEvent{
					Type: ai.StreamEventToolResult,
					ToolResult: &ai.ToolResult{
						Name:    contentPart.FunctionCall.Name,
						Payload: string(contentPart.FunctionCall.Args),
					},
				})
			}
		}

		if delta := strings.Join(textParts, ""); delta != "" {
			events = append(events, ai.StreamEvent{
				Type:    ai.StreamEventContent,
				Content: delta,
			})
		}
	}

	// Usage metadata typically arrives on the final chunk.
	if chunk.UsageMetadata != nil && chunk.UsageMetadata.TotalTokenCount > 0 && candidate.FinishReason != "" {
		events = append(events, ai.StreamEvent{
			Type: ai.StreamEventUsage,
			Usage: &ai.Usage{
				PromptTokens:     chunk.UsageMetadata.PromptTokenCount,
				CompletionTokens: chunk.UsageMetadata.CandidatesTokenCount,
				TotalTokens:      chunk.UsageMetadata.TotalTokenCount,
			},
		})
	}

	if candidate.FinishReason != "" {
		events = append(events, ai.StreamEvent{
			Type:         ai.StreamEventDone,
			FinishReason: mapFinishReason(candidate.FinishReason),
		})
	}

	return events
}
