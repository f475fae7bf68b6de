package anthropic

import (
	"context"
	"fmt"
	"io"

	"llmgate/internal/utils"
	"llmgate/providers/ai"
	"llmgate/providers/observability"
)

// StreamMessage implements [ai.StreamProvider] for Anthropic's Messages API.
// It sends a streaming request (stream=true) and returns a [ai.ChatStream]
// that yields incremental deltas as SSE events arrive from the API.
//
// Pre-stream errors (non-2xx HTTP response, network failure) are returned
// immediately as a non-nil error. Mid-stream errors (Anthropic "error"
// event, SSE parse failure) are yielded through the iterator.
//
// Anthropic SSE lifecycle:
//
//	message_start → content_block_start → content_block_delta(s) →
//	content_block_stop → message_delta → message_stop
func (provider *AnthropicProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	model := request.Model
	if model == "" {
		model = provider.model
	}

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, string(ai.ProviderClaude)),
			observability.String(observability.AttrLLMEndpoint, provider.baseURL),
			observability.String(observability.AttrLLMModel, model),
			observability.Bool("llm.streaming", true),
		)
	}

	if observer != nil {
		observer.Trace(ctx, "Anthropic provider preparing streaming request",
			observability.String(observability.AttrLLMProvider, string(ai.ProviderClaude)),
			observability.String(observability.AttrLLMModel, model),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		)
	}

	anthropicReq := requestToAnthropic(request, model)
	anthropicReq.Stream = true

	// Send the streaming request — body is left open for SSE reading.
	// Pass empty apiKey so DoPostStream does not inject a Bearer token;
	// Anthropic authenticates via x-api-key (set inside buildHeaders).
	streamURL := provider.baseURL + messagesEndpoint
	httpResponse, err := utils.DoPostStream(ctx, provider.client, streamURL, "", anthropicReq, provider.buildHeaders()...)
	if err != nil {
		if observer != nil {
			observer.Trace(ctx, "Streaming HTTP request failed", observability.Error(err))
		}
		return nil, err
	}

	sseScanner := utils.NewSSEScanner(httpResponse.Body)

	// iteratorFunc reads SSE events and converts them to ai.StreamEvent
	// values. It maintains per-stream state for the open block, accumulated
	// tool call input, and token counts spread across multiple events.
	iteratorFunc := func(yield func(ai.StreamEvent, error) bool) {
		// Ensure the response body is closed when the iterator is exhausted
		// or the caller breaks out of the loop early.
		defer utils.CloseWithLog(httpResponse.Body)

		// Event payloads may be split across reads; the fragment buffer only
		// releases a payload once it parses as complete JSON.
		var fragments utils.FragmentBuffer

		// Token counts are spread across multiple events (message_start for
		// input tokens, message_delta for output tokens) so they are
		// accumulated and emitted together in a single usage event.
		inputTokens := 0
		outputTokens := 0

		// openToolCall accumulates a tool_use block's input JSON between
		// content_block_start and content_block_stop.
		var openToolCall *ai.ToolResult

		// finishReason is captured from "message_delta" and used when
		// "message_stop" triggers the done event.
		finishReason := ""

		for {
			// Respect context cancellation between SSE reads.
			if ctx.Err() != nil {
				yield(ai.StreamEvent{}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				// Stream finished normally; "message_stop" already emitted
				// the done event.
				return
			}
			if sseErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("SSE read error: %w", sseErr))
				return
			}

			for _, document := range fragments.Feed(payload) {
				event, parseErr := unmarshalStreamEvent(string(document))
				if parseErr != nil {
					yield(ai.StreamEvent{}, fmt.Errorf("failed to parse stream event: %w", parseErr))
					return
				}

				switch event.Type {

				case "message_start":
					// message_start carries the initial usage snapshot; output
					// tokens are always 0 here. No event is emitted yet.
					if event.Message != nil {
						inputTokens = event.Message.Usage.InputTokens
					}

				case "content_block_start":
					// tool_use blocks announce their identity here; the input
					// JSON arrives in subsequent input_json_delta events.
					// The start block carries an empty input placeholder; the
					// payload is built from input_json_delta fragments only.
					if event.ContentBlock != nil && event.ContentBlock.Type == "tool_use" {
						openToolCall = &ai.ToolResult{
							ID:   event.ContentBlock.ID,
							Name: event.ContentBlock.Name,
						}
					}

				case "content_block_delta":
					if event.Delta == nil {
						continue
					}

					switch event.Delta.Type {
					case "text_delta":
						if event.Delta.Text != "" {
							if !yield(ai.StreamEvent{
								Type:    ai.StreamEventContent,
								Content: event.Delta.Text,
							}, nil) {
								return
							}
						}

					case "citations_delta":
						if event.Delta.Citation != nil {
							converted := citationToAI(*event.Delta.Citation)
							if !yield(ai.StreamEvent{
								Type:     ai.StreamEventCitation,
								Citation: &converted,
							}, nil) {
								return
							}
						}

					case "input_json_delta":
						if openToolCall != nil {
							openToolCall.Payload += event.Delta.PartialJSON
						}
					}

				case "content_block_stop":
					// A closing tool_use block is complete; surface it now.
					if openToolCall != nil {
						toolEvent := ai.StreamEvent{
							Type:       ai.StreamEventToolResult,
							ToolResult: openToolCall,
						}
						openToolCall = nil
						if !yield(toolEvent, nil) {
							return
						}
					}

				case "message_delta":
					// message_delta carries the final output token count and
					// stop reason. Emit the consolidated usage event here so
					// callers always receive usage before done.
					if event.Usage != nil {
						outputTokens = event.Usage.OutputTokens
					}
					if event.Delta != nil && event.Delta.StopReason != "" {
						finishReason = event.Delta.StopReason
					}

					if !yield(ai.StreamEvent{
						Type: ai.StreamEventUsage,
						Usage: &ai.Usage{
							PromptTokens:     inputTokens,
							CompletionTokens: outputTokens,
							TotalTokens:      inputTokens + outputTokens,
						},
					}, nil) {
						return
					}

				case "message_stop":
					yield(ai.StreamEvent{
						Type:         ai.StreamEventDone,
						FinishReason: mapStopReason(finishReason),
					}, nil)
					return

				case "error":
					// Anthropic "error" events signal a server-side failure
					// mid-stream. Propagate as an iterator error so Collect()
					// surfaces it properly.
					errMsg := "unknown stream error"
					if event.Error != nil {
						errMsg = event.Error.Message
					}
					yield(ai.StreamEvent{}, fmt.Errorf("anthropic stream error: %s", errMsg))
					return

				case "ping":
					// Keep-alive event; nothing to yield.

				default:
					// Unknown event types are silently skipped for
					// forward-compatibility with future SSE additions.
				}
			}
		}
	}

	return ai.NewChatStream(iteratorFunc), nil
}
