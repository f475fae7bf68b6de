// Package gemini implements [ai.Provider] and [ai.StreamProvider] for
// Google's Gemini generateContent API.
//
// The dialect authenticates with an x-goog-api-key header and streams
// through the streamGenerateContent endpoint with alt=sse. Unlike the
// OpenAI-style dialects, each SSE event carries a cumulative response
// snapshot rather than a delta, so the stream adapter tracks the previously
// seen text length and emits only the new portion. Grounding citation
// metadata is surfaced as citation stream events.
package gemini
