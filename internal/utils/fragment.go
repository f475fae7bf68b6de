package utils

import (
	"bytes"
	"encoding/json"
)

// FragmentBuffer reassembles JSON documents that arrive split across multiple
// network reads. Vendors occasionally flush a chunk boundary in the middle of
// a JSON object; feeding those partial reads into the buffer yields each
// document only once it parses cleanly.
//
// A fragment that never completes is simply left in the buffer: callers treat
// leftover bytes at stream end as a dropped keep-alive fragment, not an error.
// Feeding the same logical documents split at arbitrary byte boundaries yields
// exactly the same sequence as feeding them whole.
type FragmentBuffer struct {
	pending []byte
}

// Feed appends a raw fragment to the buffer and returns every complete JSON
// document now available, in arrival order. Incomplete trailing bytes stay
// buffered for the next call.
func (fragmentBuffer *FragmentBuffer) Feed(fragment string) []json.RawMessage {
	fragmentBuffer.pending = append(fragmentBuffer.pending, fragment...)

	var documents []json.RawMessage
	decoder := json.NewDecoder(bytes.NewReader(fragmentBuffer.pending))

	consumed := int64(0)
	for {
		var document json.RawMessage
		if err := decoder.Decode(&document); err != nil {
			// Either the tail is an incomplete fragment (wait for more bytes)
			// or it is garbage that will never parse (dropped at stream end).
			break
		}
		documents = append(documents, document)
		consumed = decoder.InputOffset()
	}

	if consumed > 0 {
		remainder := fragmentBuffer.pending[consumed:]
		// Trim whitespace between documents so Pending() stays accurate.
		remainder = bytes.TrimLeft(remainder, " \t\r\n")
		fragmentBuffer.pending = append(fragmentBuffer.pending[:0], remainder...)
	}

	return documents
}

// Pending reports whether an incomplete fragment is currently buffered.
func (fragmentBuffer *FragmentBuffer) Pending() bool {
	return len(bytes.TrimLeft(fragmentBuffer.pending, " \t\r\n")) > 0
}

// Reset discards any buffered partial fragment.
func (fragmentBuffer *FragmentBuffer) Reset() {
	fragmentBuffer.pending = fragmentBuffer.pending[:0]
}
