// Package ai defines the normalized request, message, and stream-chunk model
// shared by every provider adapter. The gateway speaks only these types; each
// vendor subpackage (azureopenai, anthropic, mistral, gemini, openai)
// translates them to and from its own wire dialect.
//
// The central abstractions are [Provider] for synchronous calls,
// [StreamProvider] for SSE streaming, and [ChatStream], an iter.Seq2-based
// sequence of [StreamEvent] chunks ending in a done or error event.
package ai
