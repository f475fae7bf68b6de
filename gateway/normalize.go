package gateway

import (
	"encoding/json"
	"time"

	"llmgate/internal/utils"
	"llmgate/providers/ai"
)

// normalizerState tracks the per-request state machine.
type normalizerState int

const (
	stateIdle normalizerState = iota
	stateStreaming
	stateCompleted
	stateFailed
)

// Normalizer turns one adapter event sequence into the envelope wire
// format. It owns the running-total text buffer, citation deduplication
// with stable display numbering, and the tool message ordering. One
// normalizer serves exactly one turn and is not safe for concurrent use.
type Normalizer struct {
	id      string
	model   string
	created int64

	state normalizerState

	// text accumulates the full assistant reply; every envelope re-sends
	// it whole so a client reading only the latest envelope has the
	// complete answer.
	text string

	// citations in first-seen order; citationIndex maps a source reference
	// to its 1-based display index so a repeated source keeps its number.
	citations     []indexedCitation
	citationIndex map[string]int

	// toolMessages are surfaced after the citations that informed them and
	// before the next assistant text, preserving causal order.
	toolMessages []ai.Message

	usage        *ai.Usage
	finishReason string
}

// indexedCitation is a citation with its assigned display index, as
// serialized inside the tool message on the wire.
type indexedCitation struct {
	Index     int    `json:"index"`
	SourceRef string `json:"source_ref"`
	Title     string `json:"title,omitempty"`
	URL       string `json:"url,omitempty"`
	Snippet   string `json:"snippet,omitempty"`
}

// NewNormalizer returns a normalizer for one turn. The id and model fields
// are stamped on every envelope.
func NewNormalizer(id, model string) *Normalizer {
	return &Normalizer{
		id:            id,
		model:         model,
		created:       time.Now().Unix(),
		citationIndex: make(map[string]int),
	}
}

// Feed consumes one adapter event and returns the envelope to emit for it,
// if any. Usage events update internal accounting without emitting; events
// arriving after a terminal state are dropped.
func (normalizer *Normalizer) Feed(event ai.StreamEvent) (*Envelope, bool) {
	if normalizer.state == stateCompleted || normalizer.state == stateFailed {
		return nil, false
	}
	normalizer.state = stateStreaming

	switch event.Type {
	case ai.StreamEventContent:
		if event.Content == "" {
			// Keep-alive or empty delta; nothing to emit.
			return nil, false
		}
		normalizer.text += event.Content
		return normalizer.envelope(""), true

	case ai.StreamEventCitation:
		if event.Citation == nil {
			return nil, false
		}
		if !normalizer.addCitation(*event.Citation) {
			// Already seen; display numbering is first-seen-wins.
			return nil, false
		}
		return normalizer.envelope(""), true

	case ai.StreamEventToolResult:
		if event.ToolResult == nil {
			return nil, false
		}
		normalizer.toolMessages = append(normalizer.toolMessages, toolResultMessage(*event.ToolResult))
		return normalizer.envelope(""), true

	case ai.StreamEventUsage:
		normalizer.usage = event.Usage
		return nil, false

	case ai.StreamEventDone:
		normalizer.state = stateCompleted
		normalizer.finishReason = event.FinishReason
		return normalizer.envelope(""), true
	}

	return nil, false
}

// Fail transitions to the failed state and returns the terminal envelope
// carrying the classified, localized message. The raw detail stays with the
// caller for logging.
func (normalizer *Normalizer) Fail(classification Classification) *Envelope {
	normalizer.state = stateFailed
	return normalizer.envelope(classification.UserMessage)
}

// Terminal reports whether the turn reached a terminal state.
func (normalizer *Normalizer) Terminal() bool {
	return normalizer.state == stateCompleted || normalizer.state == stateFailed
}

// Text returns the accumulated assistant reply.
func (normalizer *Normalizer) Text() string {
	return normalizer.text
}

// Usage returns the token accounting reported by the adapter, if any.
func (normalizer *Normalizer) Usage() *ai.Usage {
	return normalizer.usage
}

// FinishReason returns the adapter's finish reason once the turn completed.
func (normalizer *Normalizer) FinishReason() string {
	return normalizer.finishReason
}

// addCitation registers a citation, assigning the next display index on
// first occurrence. It reports whether the citation was new.
func (normalizer *Normalizer) addCitation(citation ai.Citation) bool {
	if _, seen := normalizer.citationIndex[citation.SourceRef]; seen {
		return false
	}
	index := len(normalizer.citations) + 1
	normalizer.citationIndex[citation.SourceRef] = index
	normalizer.citations = append(normalizer.citations, indexedCitation{
		Index:     index,
		SourceRef: citation.SourceRef,
		Title:     citation.Title,
		URL:       citation.URL,
		Snippet:   citation.Snippet,
	})
	return true
}

// envelope assembles the current full state: the citation tool message (if
// any sources were seen), the tool result messages, and the assistant
// message with the running-total text. A non-empty errorMessage marks the
// envelope terminal-failed.
func (normalizer *Normalizer) envelope(errorMessage string) *Envelope {
	var messages []ai.Message

	if len(normalizer.citations) > 0 {
		messages = append(messages, citationsMessage(normalizer.citations))
	}
	messages = append(messages, normalizer.toolMessages...)
	if normalizer.text != "" || errorMessage == "" {
		messages = append(messages, ai.Message{Role: ai.RoleAssistant, Content: normalizer.text})
	}
	if errorMessage != "" {
		messages = append(messages, ai.Message{Role: ai.RoleError, Content: errorMessage})
	}

	return &Envelope{
		ID:      normalizer.id,
		Model:   normalizer.model,
		Created: normalizer.created,
		Object:  "chat.completion.chunk",
		Choices: []EnvelopeChoice{{Messages: messages}},
		Error:   errorMessage,
	}
}

// citationsMessage wraps the deduplicated citation list in a role "tool"
// message, mirroring how grounded replies carry their sources on the wire.
func citationsMessage(citations []indexedCitation) ai.Message {
	payload, err := json.Marshal(map[string][]indexedCitation{"citations": citations})
	if err != nil {
		// Citation fields are plain strings; marshalling cannot fail in
		// practice, but an empty list is a safe fallback.
		payload = []byte(`{"citations": []}`)
	}
	return ai.Message{Role: ai.RoleTool, Content: string(payload)}
}

// toolResultMessage wraps one vendor tool payload in a role "tool" message.
// Payloads are parsed leniently: vendors occasionally emit sloppy JSON
// arguments, which the repair pass straightens before they reach the wire.
func toolResultMessage(toolResult ai.ToolResult) ai.Message {
	arguments := json.RawMessage(nil)
	if parsed, err := utils.ParseStringAs[map[string]any](toolResult.Payload); err == nil {
		if remarshalled, marshalErr := json.Marshal(parsed); marshalErr == nil {
			arguments = remarshalled
		}
	}

	wire := struct {
		ID        string          `json:"id,omitempty"`
		Name      string          `json:"name,omitempty"`
		Arguments json.RawMessage `json:"arguments,omitempty"`
		Raw       string          `json:"raw,omitempty"`
	}{ID: toolResult.ID, Name: toolResult.Name, Arguments: arguments}
	if arguments == nil {
		// Unrepairable payloads travel as an opaque string.
		wire.Raw = toolResult.Payload
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		payload = []byte(`{}`)
	}
	return ai.Message{Role: ai.RoleTool, Content: string(payload)}
}
