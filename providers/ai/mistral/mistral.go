package mistral

import (
	"context"
	"net/http"
	"strings"

	"llmgate/internal/utils"
	"llmgate/providers/ai"
	"llmgate/providers/observability"
)

const (
	// defaultBaseURL is the canonical base URL for Mistral's API.
	defaultBaseURL = "https://api.mistral.ai/v1"

	// chatCompletionsEndpoint is the path for the chat completions endpoint.
	chatCompletionsEndpoint = "/chat/completions"
)

// Config carries the settings required to construct a [MistralProvider].
type Config struct {
	APIKey  string // Required
	BaseURL string // Optional, defaults to api.mistral.ai
	Model   string // Required model identifier (e.g. "mistral-large-latest")
}

// MistralProvider implements [ai.Provider] and [ai.StreamProvider] for the
// Mistral chat completions API. Use [New] to construct a ready-to-use
// instance.
type MistralProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// New returns a [MistralProvider] built from cfg. It fails with an
// [ai.ConfigError] when the API key or model is missing.
func New(cfg Config) (*MistralProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ai.ConfigError{Provider: ai.ProviderMistral, Field: "api_key"}
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, &ai.ConfigError{Provider: ai.ProviderMistral, Field: "model"}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &MistralProvider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   cfg.Model,
		client:  &http.Client{},
	}, nil
}

// WithHttpClient replaces the default [http.Client] used for API calls and
// returns the provider so calls can be chained.
func (provider *MistralProvider) WithHttpClient(httpClient *http.Client) *MistralProvider {
	provider.client = httpClient
	return provider
}

// Name implements [ai.Provider].
func (provider *MistralProvider) Name() ai.ProviderID {
	return ai.ProviderMistral
}

// rejectImages fails fast when the request carries image parts, since the
// configured models are text-only.
func rejectImages(request ai.ChatRequest) error {
	for _, message := range request.Messages {
		if message.HasImages() {
			return &ai.CapabilityError{Provider: ai.ProviderMistral, Capability: "image input"}
		}
	}
	return nil
}

// SendMessage implements [ai.Provider] by sending a synchronous chat request
// and returning the full response mapped to the generic [ai.ChatResponse]
// format.
func (provider *MistralProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := rejectImages(request); err != nil {
		return nil, err
	}

	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	model := request.Model
	if model == "" {
		model = provider.model
	}

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, string(ai.ProviderMistral)),
			observability.String(observability.AttrLLMEndpoint, provider.baseURL),
			observability.String(observability.AttrLLMModel, model),
		)
		defer span.AddEvent(observability.EventLLMRequestEnd)
	}

	if observer != nil {
		observer.Trace(ctx, "Mistral provider preparing request",
			observability.String(observability.AttrLLMProvider, string(ai.ProviderMistral)),
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
