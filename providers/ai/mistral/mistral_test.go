package mistral

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"llmgate/providers/ai"
)

// TestNew_Validation verifies that missing required settings are reported as
// configuration errors before any request is made.
func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Model: "mistral-large-latest"}); err == nil {
		t.Error("expected an error for a missing API key")
	}

	_, err := New(Config{APIKey: "key"})
	var configErr *ai.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected a ConfigError, got %v", err)
	}
	if configErr.Field != "model" {
		t.Errorf("expected field %q, got %q", "model", configErr.Field)
	}
}

// TestSendMessage verifies Bearer authentication, request mapping, and
// response mapping.
func TestSendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-mistral" {
			t.Errorf("unexpected Authorization header: %q", r.Header.Get("Authorization"))
		}

		var body chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if body.Model != "mistral-large-latest" {
			t.Errorf("unexpected model: %s", body.Model)
		}
		if body.MaxTokens == nil || *body.MaxTokens != 400 {
			t.Errorf("expected max_tokens 400, got %v", body.MaxTokens)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("expected system message first, got %+v", body.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1756600000,
			"model": "mistral-large-latest",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Bonjour"}}],
			"usage": {"prompt_tokens": 9, "completion_tokens": 2, "total_tokens": 11}
		}`))
	}))
	defer server.Close()

	provider, err := New(Config{APIKey: "sk-mistral", Model: "mistral-large-latest", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	response, err := provider.SendMessage(context.Background(), ai.ChatRequest{
		SystemPrompt:     "Reply in French",
		Messages:         []ai.Message{{Role: ai.RoleUser, Content: "Hello"}},
		GenerationConfig: &ai.GenerationConfig{MaxOutputTokens: 400},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Content != "Bonjour" {
		t.Errorf("unexpected content: %q", response.Content)
	}
	if response.FinishReason != "stop" {
		t.Errorf("unexpected finish reason: %q", response.FinishReason)
	}
}

// TestSendMessage_RejectsImages verifies that requests with image parts fail
// fast with a capability error before any HTTP call.
func TestSendMessage_RejectsImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no HTTP request should be made for an image request")
	}))
	defer server.Close()

	provider, _ := New(Config{APIKey: "sk-mistral", Model: "mistral-large-latest", BaseURL: server.URL})

	request := ai.ChatRequest{
		Messages: []ai.Message{{
			Role: ai.RoleUser,
			ContentParts: []ai.ContentPart{
				{Type: ai.ContentPartText, Text: "What is in this image?"},
				{Type: ai.ContentPartImage, ImageData: "aGVsbG8=", ImageMimeType: "image/png"},
			},
		}},
	}

	_, err := provider.SendMessage(context.Background(), request)
	var capabilityErr *ai.CapabilityError
	if !errors.As(err, &capabilityErr) {
		t.Fatalf("expected a CapabilityError, got %v", err)
	}
	if capabilityErr.Provider != ai.ProviderMistral {
		t.Errorf("unexpected provider in capability error: %s", capabilityErr.Provider)
	}

	// Streaming takes the same path.
	if _, err := provider.StreamMessage(context.Background(), request); !errors.As(err, &capabilityErr) {
		t.Fatalf("expected a CapabilityError from StreamMessage, got %v", err)
	}
}

// TestStreamMessage verifies SSE decoding, usage delivery on the final
// chunk, and [DONE] termination.
func TestStreamMessage(t *testing.T) {
	body := "data: {\"id\":\"cmpl-1\",\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":\"Bon\"}}]}\n\n" +
		"data: {\"id\":\"cmpl-1\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"jour\"},\"finish_reason\":\"stop\"}],\"usage\":{\"prompt_tokens\":9,\"completion_tokens\":2,\"total_tokens\":11}}\n\n" +
		"data: [DONE]\n\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(body))
	}))
	defer server.Close()

	provider, _ := New(Config{APIKey: "sk-mistral", Model: "mistral-large-latest", BaseURL: server.URL})

	stream, err := provider.StreamMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Content != "Bonjour" {
		t.Errorf("unexpected accumulated content: %q", response.Content)
	}
	if response.FinishReason != "stop" {
		t.Errorf("unexpected finish reason: %q", response.FinishReason)
	}
	if response.Usage == nil || response.Usage.TotalTokens != 11 {
		t.Errorf("unexpected usage: %+v", response.Usage)
	}
}
