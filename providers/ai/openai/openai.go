package openai

import (
	"context"
	"net/http"
	"strings"

	"llmgate/internal/utils"
	"llmgate/providers/ai"
	"llmgate/providers/observability"
)

const (
	// defaultBaseURL is the canonical base URL for OpenAI's API.
	defaultBaseURL = "https://api.openai.com/v1"

	// chatCompletionsEndpoint is the path for the chat completions endpoint.
	chatCompletionsEndpoint = "/chat/completions"
)

// Config carries the settings required to construct an [OpenAIProvider].
type Config struct {
	APIKey  string // Required
	BaseURL string // Optional, defaults to api.openai.com
	Model   string // Required model identifier (e.g. "gpt-4o")
}

// OpenAIProvider implements [ai.Provider] and [ai.StreamProvider] for the
// OpenAI chat completions API. Use [New] to construct a ready-to-use instance.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// New returns an [OpenAIProvider] built from cfg. It fails with an
// [ai.ConfigError] when the API key or model is missing, so misconfiguration
// is caught at process start rather than on the first request.
func New(cfg Config) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ai.ConfigError{Provider: ai.ProviderOpenAIDirect, Field: "api_key"}
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, &ai.ConfigError{Provider: ai.ProviderOpenAIDirect, Field: "model"}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &OpenAIProvider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   cfg.Model,
		client:  &http.Client{},
	}, nil
}

// WithHttpClient replaces the default [http.Client] used for API calls and
// returns the provider so calls can be chained. Useful for injecting custom
// timeouts, transport layers, or test doubles.
func (provider *OpenAIProvider) WithHttpClient(httpClient *http.Client) *OpenAIProvider {
	provider.client = httpClient
	return provider
}

// Name implements [ai.Provider].
func (provider *OpenAIProvider) Name() ai.ProviderID {
	return ai.ProviderOpenAIDirect
}

// SendMessage implements [ai.Provider] by sending a synchronous chat request
// and returning the full response mapped to the generic [ai.ChatResponse]
// format.
func (provider *OpenAIProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
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
		)
		defer span.AddEvent(observability.EventLLMRequestEnd)
	}

	if observer != nil {
		observer.Trace(ctx, "OpenAI provider preparing request",
			observability.String(observability.AttrLLMProvider, string(ai.ProviderOpenAIDirect)),
			observability.String(observability.AttrLLMModel, model),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		)
	}

	chatRequest := requestToChatCompletion(request, model)

	url := provider.baseURL + chatCompletionsEndpoint
	_, chatResponse, err := utils.DoPostSync[chatCompletionResponse](ctx, provider.client, url, provider.apiKey, chatRequest)
	if err != nil {
		return nil, err
	}

	return chatCompletionToResponse(chatResponse), nil
}
