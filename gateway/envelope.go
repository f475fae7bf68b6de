package gateway

import (
	"errors"

	"llmgate/providers/ai"
)

// ResponseSizeTier selects one of the three configured output token
// ceilings for a conversation turn.
type ResponseSizeTier string

const (
	TierVeryShort     ResponseSizeTier = "veryShort"
	TierNormal        ResponseSizeTier = "normal"
	TierComprehensive ResponseSizeTier = "comprehensive"
)

// Tiers lists every valid tier. Budget validation iterates this so a
// provider cannot be registered with a tier missing.
var Tiers = []ResponseSizeTier{TierVeryShort, TierNormal, TierComprehensive}

// Valid reports whether the tier is one of the three configured classes.
func (tier ResponseSizeTier) Valid() bool {
	switch tier {
	case TierVeryShort, TierNormal, TierComprehensive:
		return true
	}
	return false
}

// ConversationRequest is one conversation turn as received from the caller:
// the full message history in chronological order plus the provider and
// response size tier to use.
type ConversationRequest struct {
	Provider ai.ProviderID    `json:"provider"`
	Tier     ResponseSizeTier `json:"tier"`
	Messages []ai.Message     `json:"messages"`
}

var (
	errNoMessages      = errors.New("conversation request has no messages")
	errLastNotUser     = errors.New("last message must have role user")
	errInvalidTier     = errors.New("invalid response size tier")
	errMissingProvider = errors.New("missing provider identifier")
)

// Validate enforces the request invariants: a provider is named, the tier
// is known, the message sequence is non-empty, and the last message comes
// from the user.
func (request ConversationRequest) Validate() error {
	if request.Provider == "" {
		return errMissingProvider
	}
	if !request.Tier.Valid() {
		return errInvalidTier
	}
	if len(request.Messages) == 0 {
		return errNoMessages
	}
	if request.Messages[len(request.Messages)-1].Role != ai.RoleUser {
		return errLastNotUser
	}
	return nil
}

// Envelope is one unit of the normalized output wire format. Assistant
// messages carry the running-total accumulated content, so a client that
// only reads the latest envelope still has the complete answer.
type Envelope struct {
	ID      string           `json:"id"`
	Model   string           `json:"model"`
	Created int64            `json:"created"`
	Object  string           `json:"object"`
	Choices []EnvelopeChoice `json:"choices"`
	Error   string           `json:"error,omitempty"`
}

// EnvelopeChoice groups the messages of one envelope. The wire format
// allows several but the gateway always emits exactly one.
type EnvelopeChoice struct {
	Messages []ai.Message `json:"messages"`
}
