package gateway

import (
	"strings"
	"testing"

	"llmgate/providers/ai"
)

var allKinds = []ErrorKind{
	KindRateLimit,
	KindAuthFailure,
	KindBadRequest,
	KindServerError,
	KindNetworkFailure,
	KindQuotaExceeded,
	KindContentFiltered,
	KindUnknown,
}

// TestUserMessage_CatalogComplete verifies every supported language has a
// rendered, non-empty message for every error kind, with no leftover
// placeholder.
func TestUserMessage_CatalogComplete(t *testing.T) {
	for _, language := range SupportedLanguages {
		for _, kind := range allKinds {
			message := userMessage(language, kind, ai.ProviderMistral)
			if message == "" {
				t.Errorf("userMessage(%s, %s) is empty", language, kind)
			}
			if strings.Contains(message, "{provider}") {
				t.Errorf("userMessage(%s, %s) = %q has an unsubstituted placeholder", language, kind, message)
			}
		}
	}
}

// TestUserMessage_ProviderSubstitution verifies the display name lands in
// the rendered message.
func TestUserMessage_ProviderSubstitution(t *testing.T) {
	tests := []struct {
		provider ai.ProviderID
		display  string
	}{
		{ai.ProviderAzureOpenAI, "Azure OpenAI"},
		{ai.ProviderClaude, "Claude"},
		{ai.ProviderMistral, "Mistral"},
		{ai.ProviderGemini, "Gemini"},
		{ai.ProviderOpenAIDirect, "OpenAI"},
	}
	for _, test := range tests {
		message := userMessage("en", KindRateLimit, test.provider)
		if !strings.Contains(message, test.display) {
			t.Errorf("userMessage(en, RateLimit, %s) = %q missing display name %q", test.provider, message, test.display)
		}
	}
}

// TestUserMessage_UnknownLanguageFallsBack verifies English is used for a
// language outside the catalog.
func TestUserMessage_UnknownLanguageFallsBack(t *testing.T) {
	got := userMessage("nl", KindServerError, ai.ProviderGemini)
	want := userMessage("en", KindServerError, ai.ProviderGemini)
	if got != want {
		t.Errorf("fallback message = %q, want English %q", got, want)
	}
}

// TestIsSupportedLanguage covers the configured language whitelist.
func TestIsSupportedLanguage(t *testing.T) {
	for _, language := range SupportedLanguages {
		if !IsSupportedLanguage(language) {
			t.Errorf("IsSupportedLanguage(%s) = false", language)
		}
	}
	for _, language := range []string{"nl", "EN", "", "english"} {
		if IsSupportedLanguage(language) {
			t.Errorf("IsSupportedLanguage(%q) = true, want false", language)
		}
	}
}
