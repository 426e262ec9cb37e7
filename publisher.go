package xcheckout

import (
	"context"
	"fmt"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// PublishOutcome reports what the bus did with one event. Delivered=false
// with a non-empty ErrorCode means the bus accepted the call but rejected
// the entry; that outcome is logged and swallowed, never raised.
type PublishOutcome struct {
	Delivered  bool
	BusEntryID string
	ErrorCode  string
}

// Publisher serializes envelopes and submits them to the external bus,
// one batch entry per publish call. Delivery is fire-and-forget relative to
// the business operation that triggered it: a rejected entry is logged but
// does not fail the caller. Only a transport-level fault (the bus was
// unreachable) comes back as an error.
type Publisher struct {
	notifier
	bus    Bus
	cfg    PublisherConfig
	codec  Codec
	clock  xclock.Clock
	logger *xlog.Logger
}

// NewPublisher wires a publisher against a Bus. The config must be valid.
func NewPublisher(bus Bus, cfg PublisherConfig, codec Codec, clock xclock.Clock, logger *xlog.Logger) (*Publisher, error) {
	if bus == nil {
		return nil, ErrNoBusConfigured
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	if clock == nil {
		clock = xclock.Default()
	}
	if logger == nil {
		logger = xlog.Default()
	}
	return &Publisher{bus: bus, cfg: cfg, codec: codec, clock: clock, logger: logger}, nil
}

// Publish wraps the payload in a fresh envelope and submits it under the
// given event type.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) (PublishOutcome, error) {
	data, err := p.codec.Marshal(payload)
	if err != nil {
		return PublishOutcome{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	env := NewEnvelope(eventType, p.cfg.Source, p.clock.Now(), data)
	return p.PublishEnvelope(ctx, env)
}

// PublishEnvelope submits an already-built envelope as a single bus entry
// and inspects the response for a per-entry failure.
func (p *Publisher) PublishEnvelope(ctx context.Context, env Envelope) (PublishOutcome, error) {
	detail, err := p.codec.Marshal(env)
	if err != nil {
		return PublishOutcome{}, fmt.Errorf("encode envelope %s: %w", env.EventID, err)
	}

	start := p.clock.Now()
	outcome, err := p.put(ctx, BusEntry{
		Source:       env.Source,
		DetailType:   env.EventType,
		Detail:       string(detail),
		EventBusName: p.cfg.BusName,
	})
	p.notify(Lifecycle{Type: PublishDone, EventType: env.EventType, MessageID: env.EventID, Duration: p.clock.Since(start), Err: err})
	return outcome, err
}

// FinishOrder publishes a bare order event without the envelope, keeping the
// legacy wire shape ({"valor": …}) older consumers still expect.
func (p *Publisher) FinishOrder(ctx context.Context, origin, amount, status string) (PublishOutcome, error) {
	detail, err := p.codec.Marshal(map[string]string{"valor": amount})
	if err != nil {
		return PublishOutcome{}, fmt.Errorf("encode order detail: %w", err)
	}

	start := p.clock.Now()
	outcome, err := p.put(ctx, BusEntry{
		Source:       origin,
		DetailType:   status,
		Detail:       string(detail),
		EventBusName: p.cfg.BusName,
	})
	p.notify(Lifecycle{Type: PublishDone, EventType: status, Duration: p.clock.Since(start), Err: err})
	return outcome, err
}

func (p *Publisher) put(ctx context.Context, entry BusEntry) (PublishOutcome, error) {
	res, err := p.bus.PutEvents(ctx, entry)
	if err != nil {
		// Transport fault: the bus could not be reached. This one propagates.
		return PublishOutcome{}, fmt.Errorf("put event %s on bus %s: %w", entry.DetailType, entry.EventBusName, err)
	}

	if res.FailedEntryCount > 0 {
		var failed PutResultEntry
		if len(res.Entries) > 0 {
			failed = res.Entries[0]
		}
		// The bus accepted the call but rejected the entry. Per contract this
		// is logged and swallowed; the originating operation is not failed.
		p.logger.Error().
			Str("bus", entry.EventBusName).
			Str("detail_type", entry.DetailType).
			Str("error_code", failed.ErrorCode).
			Str("error_message", failed.ErrorMessage).
			Msg("event bus rejected entry")
		return PublishOutcome{Delivered: false, ErrorCode: failed.ErrorCode}, nil
	}

	var entryID string
	if len(res.Entries) > 0 {
		entryID = res.Entries[0].EventID
	}
	p.logger.Info().
		Str("bus", entry.EventBusName).
		Str("detail_type", entry.DetailType).
		Str("bus_entry_id", entryID).
		Msg("event published")
	return PublishOutcome{Delivered: true, BusEntryID: entryID}, nil
}
