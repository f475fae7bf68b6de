package gemini

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
	// defaultBaseURL is the canonical base URL for the Gemini API.
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// apiKeyHeader is the Google authentication header, used instead of a
	// Bearer token.
	apiKeyHeader = "x-goog-api-key"
)

// Config carries the settings required to construct a [GeminiProvider].
type Config struct {
	APIKey  string // Required
	BaseURL string // Optional, defaults to generativelanguage.googleapis.com
	Model   string // Required model identifier (e.g. "gemini-2.0-flash")
}

// GeminiProvider implements [ai.Provider] and [ai.StreamProvider] for the
// Gemini generateContent API. Use [New] to construct a ready-to-use
// instance.
type GeminiProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// New returns a [GeminiProvider] built from cfg. It fails with an
// [ai.ConfigError] when the API key or model is missing.
func New(cfg Config) (*GeminiProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ai.ConfigError{Provider: ai.ProviderGemini, Field: "api_key"}
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, &ai.ConfigError{Provider: ai.ProviderGemini, Field: "model"}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &GeminiProvider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   cfg.Model,
		client:  &http.Client{},
	}, nil
}

// WithHttpClient replaces the default [http.Client] used for API calls and
// returns the provider so calls can be chained.
func (provider *GeminiProvider) WithHttpClient(httpClient *http.Client) *GeminiProvider {
	provider.client = httpClient
	return provider
}

// Name implements [ai.Provider].
func (provider *GeminiProvider) Name() ai.ProviderID {
	return ai.ProviderGemini
}

// SendMessage implements [ai.Provider] by sending a synchronous
// generateContent request and returning the full response mapped to the
// generic [ai.ChatResponse] format.
func (provider *GeminiProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
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
		)
		defer span.AddEvent(observability.EventLLMRequestEnd)
	}

	if observer != nil {
		observer.Trace(ctx, "Gemini provider preparing request",
			observability.String(observability.AttrLLMProvider, string(ai.ProviderGemini)),
			observability.String(observability.AttrLLMModel, model),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", provider.baseURL, model)
	geminiReq := requestToGemini(request)

	// Empty apiKey so DoPostSync does not inject a Bearer token; Gemini
	// authenticates via x-goog-api-key instead.
	httpResponse, response, err := utils.DoPostSync[generateContentResponse](
		ctx, provider.client, url, "", geminiReq,
		utils.HeaderOption{Key: apiKeyHeader, Value: provider.apiKey},
	)
	if err != nil {
		if observer != nil {
			observer.Trace(ctx, "HTTP request failed", observability.Error(err))
		}
		return nil, err
	}
	if response == nil {
		return nil, fmt.Errorf("empty response from Gemini API: %s", httpResponse.Status)
	}

	result := geminiToResponse(response)
	result.Model = model

	return result, nil
}
