package utils

// Ptr returns a pointer to v, avoiding a temporary variable when the address
// of a literal is needed. Vendor request payloads across the llmgate adapters
// distinguish absent from zero-valued fields with pointers, so optional wire
// fields such as stream flags and sampling parameters are set with it.
//
// Example:
//
//	chatRequest.Stream = utils.Ptr(true)
func Ptr[T any](v T) *T {
	return &v
}
