package ai

import "iter"

// StreamEventType identifies the kind of chunk carried by a StreamEvent.
type StreamEventType string

const (
	// StreamEventContent indicates a text content delta.
	StreamEventContent StreamEventType = "content"
	// StreamEventCitation indicates a source citation extracted from the reply.
	StreamEventCitation StreamEventType = "citation"
	// StreamEventToolResult indicates a vendor tool/function payload.
	StreamEventToolResult StreamEventType = "tool_result"
	// StreamEventUsage carries token usage metadata (typically near the end).
	StreamEventUsage StreamEventType = "usage"
	// StreamEventDone signals that the stream has finished normally.
	StreamEventDone StreamEventType = "done"
	// StreamEventError signals an error that terminated the stream.
	StreamEventError StreamEventType = "error"
)

// StreamEvent represents a single chunk yielded during response streaming.
// Each event carries exactly one type of payload, identified by the Type
// field. A done or error event is always last and terminal.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	Content      string          `json:"content,omitempty"`       // Text delta (Type == StreamEventContent)
	Citation     *Citation       `json:"citation,omitempty"`      // Source reference (Type == StreamEventCitation)
	ToolResult   *ToolResult     `json:"tool_result,omitempty"`   // Tool payload (Type == StreamEventToolResult)
	Usage        *Usage          `json:"usage,omitempty"`         // Token usage (Type == StreamEventUsage)
	FinishReason string          `json:"finish_reason,omitempty"` // Present on StreamEventDone
	Error        string          `json:"error,omitempty"`         // Error message (Type == StreamEventError)
}

// ChatStream wraps a streaming iterator over adapter chunks. It supports
// range-based iteration for real-time processing and a convenience Collect()
// method for callers who want the complete response.
//
// Important: callers must consume the stream, either by iterating with Iter()
// (including breaking out of the loop early) or by calling Collect(). The
// underlying adapter may hold open resources (such as an HTTP response body)
// that are only released when the iterator completes or is abandoned via a
// loop break. Constructing a ChatStream and never iterating it will leak
// those resources.
type ChatStream struct {
	iterator iter.Seq2[StreamEvent, error]
}

// NewChatStream creates a ChatStream from a raw streaming iterator.
// The iterator is expected to yield StreamEvent values (with nil error) for
// normal chunks, and may yield a non-nil error to signal a mid-stream failure.
func NewChatStream(iterator iter.Seq2[StreamEvent, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// NewSingleEventStream wraps a synchronous ChatResponse as a short stream.
// This is the non-streaming contract: the entire text is delivered as one
// content event, followed by any citations and tool results, usage, and a
// done event.
func NewSingleEventStream(response *ChatResponse) *ChatStream {
	iteratorFunc := func(yield func(StreamEvent, error) bool) {
		if response.Content != "" {
			if !yield(StreamEvent{Type: StreamEventContent, Content: response.Content}, nil) {
				return
			}
		}

		for _, citation := range response.Citations {
			if !yield(StreamEvent{Type: StreamEventCitation, Citation: &citation}, nil) {
				return
			}
		}

		for _, toolResult := range response.ToolResults {
			if !yield(StreamEvent{Type: StreamEventToolResult, ToolResult: &toolResult}, nil) {
				return
			}
		}

		if response.Usage != nil {
			if !yield(StreamEvent{Type: StreamEventUsage, Usage: response.Usage}, nil) {
				return
			}
		}

		yield(StreamEvent{Type: StreamEventDone, FinishReason: response.FinishReason}, nil)
	}

	return NewChatStream(iteratorFunc)
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
// Example:
//
//	for event, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    fmt.Print(event.Content)
//	}
func (stream *ChatStream) Iter() iter.Seq2[StreamEvent, error] {
	return stream.iterator
}

// Collect consumes the entire stream and returns the accumulated ChatResponse.
// Any mid-stream error terminates collection and returns the partial response
// together with the error.
func (stream *ChatStream) Collect() (*ChatResponse, error) {
	accumulated := &ChatResponse{}

	for event, err := range stream.iterator {
		if err != nil {
			return accumulated, err
		}

		switch event.Type {
		case StreamEventContent:
			accumulated.Content += event.Content

		case StreamEventCitation:
			if event.Citation != nil {
				accumulated.Citations = append(accumulated.Citations, *event.Citation)
			}

		case StreamEventToolResult:
			if event.ToolResult != nil {
				accumulated.ToolResults = append(accumulated.ToolResults, *event.ToolResult)
			}

		case StreamEventUsage:
			if event.Usage != nil {
				accumulated.Usage = event.Usage
			}

		case StreamEventDone:
			accumulated.FinishReason = event.FinishReason

		case StreamEventError:
			// Error events are informational; the actual error comes through
			// the iterator's error channel.
		}
	}

	return accumulated, nil
}
