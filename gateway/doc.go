// Package gateway orchestrates one conversation turn against a configured
// LLM provider: it resolves the adapter, selects the output token budget,
// issues the vendor call inside a single classification boundary, and
// normalizes the adapter's event stream into the line-delimited envelope
// format consumed by the UI.
//
// The package owns the cross-vendor concerns the adapters deliberately do
// not: the adapter registry, the token budget table, the error classifier
// with its localized message templates, and the streaming normalizer.
package gateway
