// Package observability defines the tracing and structured logging interfaces
// carried through context across the gateway and the provider adapters. A nil
// observer means observability is disabled; every call site checks for nil
// before logging, so instrumentation never changes control flow.
//
// The [Provider] interface combines [Tracer] and [Logger]. The slog
// subpackage supplies the standard-library implementation used by the llmgate
// binary.
package observability
