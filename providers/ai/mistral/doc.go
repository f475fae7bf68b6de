// Package mistral implements [ai.Provider] and [ai.StreamProvider] for the
// Mistral "La Plateforme" chat completions API.
//
// The wire dialect is close to OpenAI's: Bearer authentication, a model
// parameter, SSE streaming terminated by a [DONE] sentinel. The configured
// models do not accept image input, so requests carrying image parts fail
// fast with an [ai.CapabilityError] instead of silently dropping the image.
package mistral
