package ai

import (
	"context"
	"fmt"
)

// ProviderID identifies one configured vendor backend.
type ProviderID string

const (
	ProviderAzureOpenAI  ProviderID = "azure_openai"
	ProviderClaude       ProviderID = "claude"
	ProviderMistral      ProviderID = "mistral"
	ProviderGemini       ProviderID = "gemini"
	ProviderOpenAIDirect ProviderID = "openai_direct"
)

// DisplayName returns the user-facing vendor name used in localized error
// messages. Unknown identifiers fall back to the raw id so a message is never
// empty.
func (id ProviderID) DisplayName() string {
	switch id {
	case ProviderAzureOpenAI:
		return "Azure OpenAI"
	case ProviderClaude:
		return "Claude"
	case ProviderMistral:
		return "Mistral"
	case ProviderGemini:
		return "Gemini"
	case ProviderOpenAIDirect:
		return "OpenAI"
	default:
		return string(id)
	}
}

// Provider is the core interface that every vendor adapter must satisfy. It
// covers the full lifecycle of a single synchronous request: authentication,
// endpoint configuration, message dispatch, and response interpretation.
// Use [StreamProvider] in addition when the vendor supports streaming.
//
// Failure policy: adapters propagate raw failures (typed HTTP status errors,
// transport errors, capability errors) unmodified. Classification into the
// user-facing taxonomy happens centrally at the gateway boundary, never
// inside an adapter.
type Provider interface {
	// Name returns the identifier this adapter is registered under.
	Name() ProviderID

	// SendMessage sends a chat request to the vendor and returns the
	// completed response. Returns an error if the vendor call fails,
	// the context is cancelled, or the response cannot be decoded.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)
}

// StreamProvider is implemented by adapters that support streaming responses.
// Callers detect streaming support via type assertion:
// provider.(StreamProvider). Adapters without it fall back to SendMessage
// wrapped in [NewSingleEventStream].
type StreamProvider interface {
	Provider

	// StreamMessage sends a chat request and returns a ChatStream that yields
	// incremental chunks as they arrive from the vendor. Pre-stream errors
	// (auth, bad request, network) are returned as a normal error. Mid-stream
	// errors are yielded through the iterator.
	StreamMessage(ctx context.Context, request ChatRequest) (*ChatStream, error)
}

// CapabilityError reports a request feature the target vendor cannot serve,
// such as image input to a text-only API. Adapters fail fast with this error
// instead of silently dropping content; the classifier maps it to the
// BadRequest kind.
type CapabilityError struct {
	Provider   ProviderID
	Capability string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("provider %s does not support %s", e.Provider, e.Capability)
}

// ConfigError reports missing or invalid adapter configuration detected at
// construction time, before any network call is made.
type ConfigError struct {
	Provider ProviderID
	Field    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %s: missing required setting %q", e.Provider, e.Field)
}
