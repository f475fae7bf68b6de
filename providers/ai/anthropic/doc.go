// Package anthropic implements [ai.Provider] and [ai.StreamProvider] for
// Anthropic's Messages API (Claude models).
//
// The dialect authenticates with an x-api-key header plus a pinned
// anthropic-version header, requires max_tokens on every request, and
// streams through a typed SSE lifecycle (message_start through
// message_stop) rather than bare data chunks. Search-result citations
// attached to text deltas are surfaced as citation stream events.
package anthropic
