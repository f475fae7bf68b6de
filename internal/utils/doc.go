// Package utils provides shared low-level helpers used throughout the llmgate
// internals. It covers HTTP request helpers for both synchronous and
// streaming (SSE) communication with LLM vendor APIs, reassembly of JSON
// documents split across network reads, and generic pointer and string
// utilities.
//
// Key entry points: [DoPostSync] for synchronous JSON round-trips,
// [DoPostStream] together with [SSEScanner] for Server-Sent Events streaming,
// [FragmentBuffer] for split-fragment buffering, and [ParseStringAs] for
// lenient parsing of vendor-emitted JSON payloads.
package utils
