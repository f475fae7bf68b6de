package azureopenai

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"llmgate/internal/utils"
	"llmgate/providers/ai"
	"llmgate/providers/observability"
)

const (
	// defaultAPIVersion is the service API version requested when the
	// configuration does not pin one.
	defaultAPIVersion = "2024-06-01"

	// apiKeyHeader is the Azure authentication header, used instead of a
	// Bearer token.
	apiKeyHeader = "api-key"
)

// Config carries the settings required to construct an [AzureProvider].
type Config struct {
	Endpoint   string // Required resource endpoint (e.g. "https://myresource.openai.azure.com")
	APIKey     string // Required
	Deployment string // Required deployment name; replaces the model request parameter
	APIVersion string // Optional, defaults to a recent stable version
}

// AzureProvider implements [ai.Provider] and [ai.StreamProvider] for Azure
// OpenAI chat completion deployments. Use [New] to construct a ready-to-use
// instance.
type AzureProvider struct {
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	client     *http.Client
}

// New returns an [AzureProvider] built from cfg. It fails with an
// [ai.ConfigError] when the endpoint, API key, or deployment is missing.
func New(cfg Config) (*AzureProvider, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, &ai.ConfigError{Provider: ai.ProviderAzureOpenAI, Field: "endpoint"}
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ai.ConfigError{Provider: ai.ProviderAzureOpenAI, Field: "api_key"}
	}
	if strings.TrimSpace(cfg.Deployment) == "" {
		return nil, &ai.ConfigError{Provider: ai.ProviderAzureOpenAI, Field: "deployment"}
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	return &AzureProvider{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		deployment: cfg.Deployment,
		apiVersion: apiVersion,
		client:     &http.Client{},
	}, nil
}

// WithHttpClient replaces the default [http.Client] used for API calls and
// returns the provider so calls can be chained.
func (provider *AzureProvider) WithHttpClient(httpClient *http.Client) *AzureProvider {
	provider.client = httpClient
	return provider
}

// Name implements [ai.Provider].
func (provider *AzureProvider) Name() ai.ProviderID {
	return ai.ProviderAzureOpenAI
}

// chatCompletionsURL builds the deployment-scoped chat completions URL with
// the api-version query parameter.
func (provider *AzureProvider) chatCompletionsURL() string {
	return provider.endpoint +
		"/openai/deployments/" + url.PathEscape(provider.deployment) +
		"/chat/completions?api-version=" + url.QueryEscape(provider.apiVersion)
}

// SendMessage implements [ai.Provider] by sending a synchronous chat request
// to the configured deployment and returning the full response mapped to the
// generic [ai.ChatResponse] format.
func (provider *AzureProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, string(ai.ProviderAzureOpenAI)),
			observability.String(observability.AttrLLMEndpoint, provider.endpoint),
			observability.String(observability.AttrLLMModel, provider.deployment),
		)
		defer span.AddEvent(observability.EventLLMRequestEnd)
	}

	if observer != nil {
		observer.Trace(ctx, "Azure OpenAI provider preparing request",
			observability.String(observability.AttrLLMProvider, string(ai.ProviderAzureOpenAI)),
			observability.String(observability.AttrLLMModel, provider.deployment),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		)
	}

	chatRequest := requestToChatCompletion(request)

	// Azure authenticates with the api-key header; the Bearer slot stays
	// empty.
	_, chatResponse, err := utils.DoPostSync[chatCompletionResponse](
		ctx, provider.client, provider.chatCompletionsURL(), "", chatRequest,
		utils.HeaderOption{Key: apiKeyHeader, Value: provider.apiKey},
	)
	if err != nil {
		return nil, err
	}

	return chatCompletionToResponse(chatResponse), nil
}
