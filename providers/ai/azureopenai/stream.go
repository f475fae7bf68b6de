package azureopenai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"llmgate/internal/utils"
	"llmgate/providers/ai"
	"llmgate/providers/observability"
)

// StreamMessage implements [ai.StreamProvider] for deployment-scoped chat
// completions. It sends a streaming request with stream=true and returns a
// ChatStream that yields incremental chunks as SSE events arrive.
//
// "On Your Data" citation deltas are surfaced as citation events before the
// content they ground. Tool call deltas stream their arguments in argument
// fragments; they are accumulated per call index and surfaced as complete
// tool_result events once the choice finishes.
//
// Pre-stream errors (non-2xx HTTP response, network failure) are returned
// immediately as a non-nil error. Mid-stream errors are yielded through the
// iterator.
func (provider *AzureProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, string(ai.ProviderAzureOpenAI)),
			observability.String(observability.AttrLLMEndpoint, provider.endpoint),
			observability.String(observability.AttrLLMModel, provider.deployment),
			observability.Bool("llm.streaming", true),
		)
	}

	if observer != nil {
		observer.Trace(ctx, "Azure OpenAI provider preparing streaming request",
			observability.String(observability.AttrLLMProvider, string(ai.ProviderAzureOpenAI)),
			observability.String(observability.AttrLLMModel, provider.deployment),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		)
	}

	chatRequest := requestToChatCompletion(request)
	chatRequest.Stream = utils.Ptr(true)
	chatRequest.StreamOptions = &streamOptions{IncludeUsage: true}

	httpResponse, err := utils.DoPostStream(ctx, provider.client, provider.chatCompletionsURL(), "", chatRequest,
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

		// Chunk payloads may be split across reads; the fragment buffer only
		// releases a payload once it parses as complete JSON.
		var fragments utils.FragmentBuffer

		// Tool call arguments arrive in fragments keyed by call index.
		toolCalls := newToolCallAccumulator()

		// The usage chunk arrives after the chunk carrying finish_reason
		// when stream_options.include_usage is set, so the finish reason is
		// held back and the done event goes out last, at the [DONE]
		// sentinel.
		var finishReason string

		for {
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

				for _, event := range chunkToStreamEvents(&chunk, toolCalls, &finishReason) {
					if !yield(event, nil) {
						return
					}
				}
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}

// chunkToStreamEvents converts a single streaming chunk into zero or more
// StreamEvents. Citation context deltas precede content and tool call
// fragments feed the accumulator. The finish reason flushes accumulated tool
// calls but is recorded into finishReason rather than emitted, so the done
// event can follow the trailing usage chunk.
func chunkToStreamEvents(chunk *chatCompletionStreamChunk, toolCalls *toolCallAccumulator, finishReason *string) []ai.StreamEvent {
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
		if choice.Delta.Context != nil {
			for _, citation := range choice.Delta.Context.Citations {
				converted := citationToAI(citation)
				events = append(events, ai.StreamEvent{
					Type:     ai.StreamEventCitation,
					Citation: &converted,
				})
			}
		}

		for _, toolCall := range choice.Delta.ToolCalls {
			toolCalls.feed(toolCall)
		}

		if choice.Delta.Content != nil && *choice.Delta.Content != "" {
			events = append(events, ai.StreamEvent{
				Type:    ai.StreamEventContent,
				Content: *choice.Delta.Content,
			})
		}

		if choice.FinishReason != nil && *choice.FinishReason != "" {
			for _, toolResult := range toolCalls.flush() {
				result := toolResult
				events = append(events, ai.StreamEvent{
					Type:       ai.StreamEventToolResult,
					ToolResult: &result,
				})
			}
			*finishReason = *choice.FinishReason
		}
	}

	return events
}

// toolCallAccumulator reassembles streamed tool calls. The first fragment of
// a call carries its id and function name; subsequent fragments append to
// the arguments string.
type toolCallAccumulator struct {
	order []int
	calls map[int]*ai.ToolResult
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{calls: make(map[int]*ai.ToolResult)}
}

// feed merges one tool call delta. Azure indexes parallel calls; fragments
// of the same call share an index.
func (accumulator *toolCallAccumulator) feed(toolCall vendorToolCall) {
	var index int
	if toolCall.Index != nil {
		index = *toolCall.Index
	} else {
		// Without an index the ID marks the start of a new call; argument
		// fragments belong to the latest one.
		index = len(accumulator.order) - 1
		if toolCall.ID != "" || index < 0 {
			index = len(accumulator.order)
		}
	}

	call, exists := accumulator.calls[index]
	if !exists {
		call = &ai.ToolResult{}
		accumulator.calls[index] = call
		accumulator.order = append(accumulator.order, index)
	}

	if toolCall.ID != "" {
		call.ID = toolCall.ID
	}
	if toolCall.Function.Name != "" {
		call.Name = toolCall.Function.Name
	}
	call.Payload += toolCall.Function.Arguments
}

// flush returns the completed calls in arrival order and resets the
// accumulator.
func (accumulator *toolCallAccumulator) flush() []ai.ToolResult {
	var results []ai.ToolResult
	for _, index := range accumulator.order {
		results = append(results, *accumulator.calls[index])
	}
	accumulator.order = nil
	accumulator.calls = make(map[int]*ai.ToolResult)
	return results
}
