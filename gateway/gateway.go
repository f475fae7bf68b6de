package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"iter"
	"time"

	"llmgate/internal/utils"
	"llmgate/providers/ai"
	"llmgate/providers/observability"
)

const (
	// DefaultFirstByteTimeout bounds the wait for a vendor's first stream
	// event.
	DefaultFirstByteTimeout = 30 * time.Second

	// DefaultInterChunkTimeout bounds the wait between subsequent events,
	// catching vendors that stop sending without closing the connection.
	DefaultInterChunkTimeout = 20 * time.Second
)

// Options tunes the per-turn watchdog timeouts. Zero values take the
// defaults.
type Options struct {
	FirstByteTimeout  time.Duration
	InterChunkTimeout time.Duration
}

// Gateway orchestrates conversation turns. It holds only read-only
// configuration, so one instance serves all concurrent turns.
type Gateway struct {
	registry          *Registry
	budgets           *BudgetTable
	classifier        *Classifier
	firstByteTimeout  time.Duration
	interChunkTimeout time.Duration
}

// New assembles a gateway from its read-only collaborators.
func New(registry *Registry, budgets *BudgetTable, classifier *Classifier, options Options) *Gateway {
	if options.FirstByteTimeout <= 0 {
		options.FirstByteTimeout = DefaultFirstByteTimeout
	}
	if options.InterChunkTimeout <= 0 {
		options.InterChunkTimeout = DefaultInterChunkTimeout
	}
	return &Gateway{
		registry:          registry,
		budgets:           budgets,
		classifier:        classifier,
		firstByteTimeout:  options.FirstByteTimeout,
		interChunkTimeout: options.InterChunkTimeout,
	}
}

// Providers exposes the registered provider identifiers for info endpoints.
func (gateway *Gateway) Providers() []ai.ProviderID {
	return gateway.registry.Providers()
}

// Converse handles one conversation turn and returns the envelope sequence
// to emit to the caller. The sequence is lazy; the vendor call starts when
// iteration starts. Exactly one terminal envelope is produced: either the
// completion envelope or one carrying a classified, localized error. On
// cancellation the vendor connection is closed and emission stops without
// a further envelope.
func (gateway *Gateway) Converse(ctx context.Context, request ConversationRequest) iter.Seq[*Envelope] {
	return func(yield func(*Envelope) bool) {
		observer := observability.ObserverFromContext(ctx)

		turnTimer := utils.NewTimer()
		turnTimer.Start()

		var span observability.Span
		if observer != nil {
			ctx, span = observer.StartSpan(ctx, observability.SpanGatewayTurn,
				observability.String(observability.AttrLLMProvider, string(request.Provider)),
				observability.String(observability.AttrGatewayTier, string(request.Tier)),
				observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
			)
			defer span.End()
		}

		turnID := newTurnID()
		normalizer := NewNormalizer(turnID, string(request.Provider))

		fail := func(classification Classification, cause error) {
			gateway.logFailure(ctx, observer, span, request, classification, cause)
			yield(normalizer.Fail(classification))
		}

		if err := request.Validate(); err != nil {
			fail(gateway.classification(request.Provider, KindBadRequest, err), err)
			return
		}

		provider, err := gateway.registry.Resolve(request.Provider)
		if err != nil {
			fail(gateway.classification(request.Provider, KindBadRequest, err), err)
			return
		}

		maxTokens, err := gateway.budgets.Select(request.Provider, request.Tier)
		if err != nil {
			fail(gateway.classification(request.Provider, KindBadRequest, err), err)
			return
		}
		if span != nil {
			span.SetAttributes(observability.Int(observability.AttrLLMMaxTokens, maxTokens))
		}

		chatRequest := ai.ChatRequest{
			Messages:         request.Messages,
			GenerationConfig: &ai.GenerationConfig{MaxOutputTokens: maxTokens},
		}

		// The stream context lets the watchdog close the vendor connection
		// independently of the caller's context.
		streamCtx, cancelStream := context.WithCancel(ctx)
		defer cancelStream()

		stream, err := provider.StreamMessage(streamCtx, chatRequest)
		if err != nil {
			fail(gateway.classifier.Classify(request.Provider, err), err)
			return
		}

		// Adapter events are consumed on a separate goroutine so the
		// watchdog can bound the wait for each one.
		events := consumeStream(streamCtx, stream)

		envelopes := 0
		deadline := time.NewTimer(gateway.firstByteTimeout)
		defer deadline.Stop()

		for {
			select {
			case <-ctx.Done():
				// Caller cancelled; close the vendor connection and stop
				// without emitting anything further.
				cancelStream()
				gateway.logCancelled(ctx, observer, span, request, envelopes)
				return

			case <-deadline.C:
				cancelStream()
				timeoutErr := fmt.Errorf("vendor stream stalled: %w", context.DeadlineExceeded)
				fail(gateway.classification(request.Provider, KindNetworkFailure, timeoutErr), timeoutErr)
				return

			case delivery, open := <-events:
				if !open {
					// Vendor closed the stream without a terminal event;
					// emit the completion envelope so the caller never
					// hangs on a missing terminal.
					if !normalizer.Terminal() {
						if envelope, emit := normalizer.Feed(ai.StreamEvent{Type: ai.StreamEventDone}); emit {
							yield(envelope)
						}
					}
					gateway.logCompleted(ctx, observer, span, request, normalizer, envelopes, turnTimer)
					return
				}

				deadline.Reset(gateway.interChunkTimeout)

				if delivery.err != nil {
					// Caller cancellation surfaces through the adapter as a
					// context error; suppress the terminal envelope then.
					if ctx.Err() != nil {
						gateway.logCancelled(ctx, observer, span, request, envelopes)
						return
					}
					fail(gateway.classifier.Classify(request.Provider, delivery.err), delivery.err)
					return
				}

				envelope, emit := normalizer.Feed(delivery.event)
				if emit {
					envelopes++
					if !yield(envelope) {
						cancelStream()
						return
					}
				}
				if normalizer.Terminal() {
					gateway.logCompleted(ctx, observer, span, request, normalizer, envelopes, turnTimer)
					return
				}
			}
		}
	}
}

// Complete runs a turn non-streaming: it drains the envelope sequence and
// returns the terminal envelope.
func (gateway *Gateway) Complete(ctx context.Context, request ConversationRequest) (*Envelope, error) {
	var last *Envelope
	for envelope := range gateway.Converse(ctx, request) {
		last = envelope
	}
	if last == nil {
		return nil, ctx.Err()
	}
	return last, nil
}

// newTurnID produces a chatcmpl-style identifier for one turn.
func newTurnID() string {
	var raw [12]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return fmt.Sprintf("turn-%d", time.Now().UnixNano())
	}
	return "turn-" + hex.EncodeToString(raw[:])
}

// streamDelivery carries one adapter event or error across the consumer
// goroutine boundary.
type streamDelivery struct {
	event ai.StreamEvent
	err   error
}

// consumeStream drains the adapter stream into a channel. The goroutine
// exits when the stream ends or when ctx is cancelled, so an abandoned
// channel never strands it.
func consumeStream(ctx context.Context, stream *ai.ChatStream) <-chan streamDelivery {
	events := make(chan streamDelivery)
	go func() {
		defer close(events)
		for event, err := range stream.Iter() {
			select {
			case events <- streamDelivery{event: event, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return events
}

// classification builds a Classification for failures the gateway detects
// itself (validation, resolution, watchdog), where the kind is already
// known.
func (gateway *Gateway) classification(provider ai.ProviderID, kind ErrorKind, err error) Classification {
	return Classification{
		Kind:        kind,
		Provider:    provider,
		UserMessage: userMessage(gateway.classifier.language, kind, provider),
		RawDetail:   err.Error(),
	}
}

func (gateway *Gateway) logFailure(ctx context.Context, observer observability.Provider, span observability.Span, request ConversationRequest, classification Classification, cause error) {
	if span != nil {
		span.RecordError(cause)
		span.SetStatus(observability.StatusError, string(classification.Kind))
		span.SetAttributes(observability.String(observability.AttrGatewayErrorKind, string(classification.Kind)))
	}
	if observer != nil {
		// RawDetail stays in the logs; the wire only carries UserMessage.
		observer.Error(ctx, "Turn failed",
			observability.String(observability.AttrLLMProvider, string(request.Provider)),
			observability.String(observability.AttrGatewayErrorKind, string(classification.Kind)),
			observability.String("error.raw_detail", classification.RawDetail),
		)
	}
}

func (gateway *Gateway) logCancelled(ctx context.Context, observer observability.Provider, span observability.Span, request ConversationRequest, envelopes int) {
	if span != nil {
		span.SetStatus(observability.StatusError, "cancelled")
	}
	if observer != nil {
		observer.Info(ctx, "Turn cancelled by caller",
			observability.String(observability.AttrLLMProvider, string(request.Provider)),
			observability.Int(observability.AttrGatewayEnvelopes, envelopes),
		)
	}
}

func (gateway *Gateway) logCompleted(ctx context.Context, observer observability.Provider, span observability.Span, request ConversationRequest, normalizer *Normalizer, envelopes int, turnTimer *utils.Timer) {
	turnTimer.Stop()
	if span != nil {
		span.SetStatus(observability.StatusOK, "")
		span.SetAttributes(
			observability.Int(observability.AttrGatewayEnvelopes, envelopes),
			observability.String(observability.AttrLLMFinishReason, normalizer.FinishReason()),
		)
	}
	if observer != nil {
		attrs := []observability.Attribute{
			observability.String(observability.AttrLLMProvider, string(request.Provider)),
			observability.Int(observability.AttrGatewayEnvelopes, envelopes),
			observability.Duration("gateway.turn_duration", turnTimer.GetDuration()),
		}
		if usage := normalizer.Usage(); usage != nil {
			attrs = append(attrs, observability.Int("llm.tokens_total", usage.TotalTokens))
		}
		observer.Info(ctx, "Turn completed", attrs...)
	}
}
