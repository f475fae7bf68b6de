package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"llmgate/internal/utils"
	"llmgate/providers/ai"
	"llmgate/providers/observability"
)

const (
	// defaultBaseURL is the canonical base URL for Anthropic's Messages API.
	defaultBaseURL = "https://api.anthropic.com/v1"

	// messagesEndpoint is the path for the Messages API endpoint.
	messagesEndpoint = "/messages"

	// anthropicVersion is the required anthropic-version header value.
	// Anthropic uses this to version-lock response formats independently
	// of the URL.
	anthropicVersion = "2023-06-01"

	// defaultMaxTokens is used when the request carries no token ceiling,
	// since the Messages API rejects requests without max_tokens.
	defaultMaxTokens = 1024
)

// Config carries the settings required to construct an [AnthropicProvider].
type Config struct {
	APIKey  string // Required
	BaseURL string // Optional, defaults to api.anthropic.com
	Model   string // Required model identifier (e.g. "claude-sonnet-4-5")
}

// AnthropicProvider implements [ai.Provider] and [ai.StreamProvider] for
// Anthropic's Messages API. Use [New] to construct a ready-to-use instance.
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// New returns an [AnthropicProvider] built from cfg. It fails with an
// [ai.ConfigError] when the API key or model is missing.
func New(cfg Config) (*AnthropicProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ai.ConfigError{Provider: ai.ProviderClaude, Field: "api_key"}
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, &ai.ConfigError{Provider: ai.ProviderClaude, Field: "model"}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &AnthropicProvider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   cfg.Model,
		client:  &http.Client{},
	}, nil
}

// WithHttpClient replaces the default [http.Client] used for API calls and
// returns the provider so calls can be chained.
func (provider *AnthropicProvider) WithHttpClient(httpClient *http.Client) *AnthropicProvider {
	provider.client = httpClient
	return provider
}

// Name implements [ai.Provider].
func (provider *AnthropicProvider) Name() ai.ProviderID {
	return ai.ProviderClaude
}

// buildHeaders constructs the HTTP headers required for every Anthropic
// request. x-api-key carries the credential (Anthropic does not use Bearer
// tokens) and anthropic-version pins the wire format.
func (provider *AnthropicProvider) buildHeaders() []utils.HeaderOption {
	return []utils.HeaderOption{
		{Key: "x-api-key", Value: provider.apiKey},
		{Key: "anthropic-version", Value: anthropicVersion},
	}
}

// SendMessage implements [ai.Provider] by sending a synchronous chat request
// to Anthropic's Messages API and returning the full response mapped to the
// generic [ai.ChatResponse] format.
func (provider *AnthropicProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
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
		)
		defer span.AddEvent(observability.EventLLMRequestEnd)
	}

	if observer != nil {
		observer.Trace(ctx, "Anthropic provider preparing request",
			observability.String(observability.AttrLLMProvider, string(ai.ProviderClaude)),
			observability.String(observability.AttrLLMModel, model),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		)
	}

	anthropicReq := requestToAnthropic(request, model)

	url := provider.baseURL + messagesEndpoint

	// Pass empty apiKey so DoPostSync does not inject a Bearer token;
	// Anthropic authenticates via x-api-key instead.
	httpResponse, response, err := utils.DoPostSync[anthropicResponse](
		ctx, provider.client, url, "", anthropicReq, provider.buildHeaders()...,
	)
	if err != nil {
		if observer != nil {
			observer.Trace(ctx, "HTTP request failed", observability.Error(err))
		}
		return nil, err
	}
	if response == nil {
		return nil, fmt.Errorf("empty response from Anthropic API: %s", httpResponse.Status)
	}

	result := anthropicToResponse(response)

	// Anthropic usually echoes the model name; fall back to the request
	// model so callers always have a non-empty Model field.
	if result.Model == "" {
		result.Model = model
	}

	return result, nil
}
