package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"llmgate/internal/utils"
	"llmgate/providers/ai"
	"llmgate/providers/observability"
)

// StreamMessage implements [ai.StreamProvider] for the chat completions
// endpoint. It sends a streaming request with stream=true and returns a
// ChatStream that yields incremental chunks as SSE events arrive.
//
// Pre-stream errors (non-2xx HTTP response, network failure) are returned
// immediately as a non-nil error. Mid-stream errors (SSE read or parse
// failure) are yielded through the iterator.
func (provider *OpenAIProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	model := request.Model
	if model == "" {
		model = provider.model
	}

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, string(ai.ProviderOpenAIDirect)),
			observability.String(observability.AttrLLMEndpoint, provider.baseURL),
			observability.String(observability.AttrLLMModel, model),
			observability.Bool("llm.streaming", true),
		)
	}

	if observer != nil {
		observer.Trace(ctx, "OpenAI provider preparing streaming request",
			observability.String(observability.AttrLLMProvider, string(ai.ProviderOpenAIDirect)),
			observability.String(observability.AttrLLMModel, model),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		)
	}

	chatRequest := requestToChatCompletion(request, model)
	chatRequest.Stream = utils.Ptr(true)
	chatRequest.StreamOptions = &streamOptions{IncludeUsage: true}

	// Send the streaming request — body is left open for SSE reading.
	streamURL := provider.baseURL + chatCompletionsEndpoint
	httpResponse, err := utils.DoPostStream(ctx, provider.client, streamURL, provider.apiKey, chatRequest)
	if err != nil {
		if observer != nil {
			observer.Trace(ctx, "Streaming HTTP request failed", observability.Error(err))
		}
		return nil, err
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		// Ensure the response body is closed when the iterator is exhausted or
		// the caller breaks out of the loop early.
		defer utils.CloseWithLog(httpResponse.Body)

		// Chunk payloads may be split across reads; the fragment buffer only
		// releases a payload once it parses as complete JSON.
		var fragments utils.FragmentBuffer

		// The usage chunk arrives after the chunk carrying finish_reason
		// when stream_options.include_usage is set, so the finish reason is
		// held back and the done event goes out last, at the [DONE]
		// sentinel.
		var finishReason string

		for {
			// Respect context cancellation between SSE reads.
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				// Stream finished normally; a dangling fragment at this point
				// is a vendor keep-alive and is silently dropped.
				if finishReason != "" {
					yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: finishReason}, nil)
				}
				return
			}
			if sseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("SSE read error: %w", sseErr))
				return
			}

			for _, document := range fragments.Feed(payload) {
				var chunk chatCompletionStreamChunk
				if parseErr := json.Unmarshal(document, &chunk); parseErr != nil {
					yield(ai.StreamEvent{}, fmt.Errorf("failed to parse streaming chunk: %w", parseErr))
					return
				}

				for _, event := range chunkToStreamEvents(&chunk, &finishReason) {
					if !yield(event, nil) {
						return // Caller stopped iterating
					}
				}
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}

// chunkToStreamEvents converts a single streaming chunk into zero or more
// StreamEvents. A single chunk can carry content and a finish reason, and the
// final usage chunk typically has empty choices. A finish reason is recorded
// into finishReason rather than emitted, so the done event can follow the
// trailing usage chunk.
func chunkToStreamEvents(chunk *chatCompletionStreamChunk, finishReason *string) []ai.StreamEvent {
	var events []ai.StreamEvent

	if chunk.Usage != nil {
		events = append(events, ai.StreamEvent{
			Type: ai.StreamEventUsage,
			Usage: &ai.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			},
		})
	}

	for _, choice := range chunk.Choices {
		if choice.Delta.Content != nil && *choice.Delta.Content != "" {
			events = append(events, ai.StreamEvent{
				Type:    ai.StreamEventContent,
				Content: *choice.Delta.Content,
			})
		}

		if choice.FinishReason != nil && *choice.FinishReason != "" {
			*finishReason = *choice.FinishReason
		}
	}

	return events
}
