package anthropic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"llmgate/providers/ai"
)

// sseBody joins event payloads into an Anthropic-shaped SSE stream.
func sseBody(payloads ...string) string {
	var builder strings.Builder
	for _, payload := range payloads {
		builder.WriteString("data: ")
		builder.WriteString(payload)
		builder.WriteString("\n\n")
	}
	return builder.String()
}

func streamingServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(body))
	}))
}

// TestStreamMessage_Lifecycle verifies the full event lifecycle produces
// content, usage, and done events in order.
func TestStreamMessage_Lifecycle(t *testing.T) {
	body := sseBody(
		`{"type":"message_start","message":{"id":"msg_01","usage":{"input_tokens":10,"output_tokens":0}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":2}}`,
		`{"type":"message_stop"}`,
	)
	server := streamingServer(t, body)
	defer server.Close()

	provider, _ := New(Config{APIKey: "sk-ant-test", Model: "claude-sonnet-4-5", BaseURL: server.URL})

	stream, err := provider.StreamMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Content != "Hello" {
		t.Errorf("unexpected accumulated content: %q", response.Content)
	}
	if response.FinishReason != "stop" {
		t.Errorf("expected end_turn mapped to stop, got %q", response.FinishReason)
	}
	if response.Usage == nil || response.Usage.PromptTokens != 10 || response.Usage.CompletionTokens != 2 {
		t.Errorf("unexpected usage: %+v", response.Usage)
	}
}

// TestStreamMessage_ToolUse verifies tool input fragments are reassembled
// and surfaced when the block closes.
func TestStreamMessage_ToolUse(t *testing.T) {
	body := sseBody(
		`{"type":"message_start","message":{"id":"msg_01","usage":{"input_tokens":10,"output_tokens":0}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_01","name":"lookup","input":{}}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"query\":"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"\"policies\"}"}}`,
		`{"type":"content_block_stop","index":0}`,
		`{"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":5}}`,
		`{"type":"message_stop"}`,
	)
	server := streamingServer(t, body)
	defer server.Close()

	provider, _ := New(Config{APIKey: "sk-ant-test", Model: "claude-sonnet-4-5", BaseURL: server.URL})

	stream, err := provider.StreamMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "Search the policies"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var toolResult *ai.ToolResult
	for event, iterErr := range stream.Iter() {
		if iterErr != nil {
			t.Fatalf("unexpected iterator error: %v", iterErr)
		}
		if event.Type == ai.StreamEventToolResult {
			toolResult = event.ToolResult
		}
	}

	if toolResult == nil {
		t.Fatal("expected a tool result event")
	}
	if toolResult.ID != "toolu_01" || toolResult.Name != "lookup" {
		t.Errorf("unexpected tool identity: %+v", toolResult)
	}
	if toolResult.Payload != `{"query":"policies"}` {
		t.Errorf("unexpected reassembled payload: %q", toolResult.Payload)
	}
}

// TestStreamMessage_CitationDelta verifies citations attached to text deltas
// become citation events.
func TestStreamMessage_CitationDelta(t *testing.T) {
	body := sseBody(
		`{"type":"message_start","message":{"id":"msg_01","usage":{"input_tokens":10,"output_tokens":0}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"citations_delta","citation":{"type":"web_search_result_location","url":"https://example.com/doc","title":"Doc","cited_text":"quoted"}}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Grounded"}}`,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":1}}`,
		`{"type":"message_stop"}`,
	)
	server := streamingServer(t, body)
	defer server.Close()

	provider, _ := New(Config{APIKey: "sk-ant-test", Model: "claude-sonnet-4-5", BaseURL: server.URL})

	stream, err := provider.StreamMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "Find the doc"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var citation *ai.Citation
	for event, iterErr := range stream.Iter() {
		if iterErr != nil {
			t.Fatalf("unexpected iterator error: %v", iterErr)
		}
		if event.Type == ai.StreamEventCitation {
			citation = event.Citation
		}
	}

	if citation == nil {
		t.Fatal("expected a citation event")
	}
	if citation.SourceRef != "https://example.com/doc" || citation.Snippet != "quoted" {
		t.Errorf("unexpected citation: %+v", citation)
	}
}

// TestStreamMessage_ErrorEvent verifies a mid-stream error event surfaces
// through the iterator as an error.
func TestStreamMessage_ErrorEvent(t *testing.T) {
	body := sseBody(
		`{"type":"message_start","message":{"id":"msg_01","usage":{"input_tokens":10,"output_tokens":0}}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"partial"}}`,
		`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
	)
	server := streamingServer(t, body)
	defer server.Close()

	provider, _ := New(Config{APIKey: "sk-ant-test", Model: "claude-sonnet-4-5", BaseURL: server.URL})

	stream, err := provider.StreamMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawContent, sawError bool
	for event, iterErr := range stream.Iter() {
		if iterErr != nil {
			if !strings.Contains(iterErr.Error(), "Overloaded") {
				t.Errorf("expected the vendor message in the error, got %v", iterErr)
			}
			sawError = true
			break
		}
		if event.Type == ai.StreamEventContent {
			sawContent = true
		}
	}

	if !sawContent {
		t.Error("expected the partial content before the error")
	}
	if !sawError {
		t.Error("expected the stream to end with an error")
	}
}

// TestStreamMessage_PingIgnored verifies keep-alive events yield nothing.
func TestStreamMessage_PingIgnored(t *testing.T) {
	body := sseBody(
		`{"type":"message_start","message":{"id":"msg_01","usage":{"input_tokens":1,"output_tokens":0}}}`,
		`{"type":"ping"}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":1}}`,
		`{"type":"message_stop"}`,
	)
	server := streamingServer(t, body)
	defer server.Close()

	provider, _ := New(Config{APIKey: "sk-ant-test", Model: "claude-sonnet-4-5", BaseURL: server.URL})

	stream, err := provider.StreamMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "Hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	for event, iterErr := range stream.Iter() {
		if iterErr != nil {
			t.Fatalf("unexpected iterator error: %v", iterErr)
		}
		if event.Type == ai.StreamEventContent {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly 1 content event, got %d", count)
	}
}
