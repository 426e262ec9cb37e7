package xcheckout

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// Consumer drains the external queue on a fixed timer. Each tick issues one
// long-poll receive, handles the batch strictly in order, and deletes every
// message whose handler completed without error. One bad message never
// aborts the batch, and no tick is allowed to overlap a previous one.
//
// Delivery is at-least-once: a message left undeleted (handler error, delete
// error, crash mid-batch) is redelivered by the queue's own retry policy, so
// handlers must tolerate duplicates.
type Consumer struct {
	notifier
	queue       Queue
	cfg         ConsumerConfig
	codec       Codec
	clock       xclock.Clock
	logger      *xlog.Logger
	handlers    map[string]Handler
	middlewares []Middleware

	// polling guards against overlapping poll cycles: a tick that arrives
	// while the previous batch is still draining is skipped, not queued.
	polling  atomic.Bool
	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewConsumer wires a consumer. Handlers are registered with Handle before
// Start; the table is read-only once the loop runs.
func NewConsumer(queue Queue, cfg ConsumerConfig, codec Codec, clock xclock.Clock, logger *xlog.Logger) (*Consumer, error) {
	if queue == nil {
		return nil, ErrNoQueueConfigured
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
	return &Consumer{
		queue:    queue,
		cfg:      cfg,
		codec:    codec,
		clock:    clock,
		logger:   logger,
		handlers: make(map[string]Handler),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Handle registers the handler dispatched for an event type. Must not be
// called after Start.
func (c *Consumer) Handle(eventType string, h Handler) *Consumer {
	if eventType != "" && h != nil {
		c.handlers[eventType] = h
	}
	return c
}

// Use appends middlewares applied around every handler. Recovery is always
// installed innermost regardless.
func (c *Consumer) Use(mws ...Middleware) *Consumer {
	c.middlewares = append(c.middlewares, mws...)
	return c
}

// Start launches the poll loop in a background goroutine. It returns
// ErrConsumerStarted on a second call.
func (c *Consumer) Start(ctx context.Context) error {
	if c.started.Swap(true) {
		return ErrConsumerStarted
	}
	go c.run(ctx)
	return nil
}

// Stop signals the loop and waits for the in-flight poll to complete. Safe
// to call more than once. Stopping never drops an acknowledged message:
// deletion happens before the next message is handled, so a restart at
// worst redelivers the tail of the batch.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	if c.started.Load() {
		<-c.doneCh
	}
}

func (c *Consumer) run(ctx context.Context) {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	c.logger.Info().
		Str("queue", c.cfg.QueueURL).
		Dur("poll_interval", c.cfg.PollInterval).
		Dur("wait_time", c.cfg.WaitTime).
		Msg("consumer started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("consumer context cancelled")
			return
		case <-c.stopCh:
			c.logger.Info().Msg("consumer stopped")
			return
		case <-ticker.C:
			// Every tick either completes normally or logs; nothing escapes
			// the loop.
			c.PollOnce(ctx)
		}
	}
}

// PollOnce runs a single poll cycle: one long-poll receive and sequential
// handling of whatever came back. It reports the number of messages
// received, and -1 when the cycle was skipped because another poll was
// still in flight.
func (c *Consumer) PollOnce(ctx context.Context) int {
	if !c.polling.CompareAndSwap(false, true) {
		c.logger.Debug().Msg("previous poll still in flight, skipping tick")
		return -1
	}
	defer c.polling.Store(false)

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Str("panic", toString(r)).Msg("poll cycle panic recovered")
		}
	}()

	start := c.clock.Now()
	msgs, err := c.queue.Receive(ctx, ReceiveOptions{
		MaxMessages: c.cfg.MaxMessages,
		WaitTime:    c.cfg.WaitTime,
	})
	if err != nil {
		// Transport fault on the queue side: logged here, next tick retries.
		c.logger.Error().Err(err).Str("queue", c.cfg.QueueURL).Msg("queue receive failed")
		c.notify(Lifecycle{Type: PollDone, Duration: c.clock.Since(start), Err: err})
		return 0
	}

	if len(msgs) == 0 {
		c.logger.Debug().Msg("no messages received")
		c.notify(Lifecycle{Type: PollDone, Duration: c.clock.Since(start)})
		return 0
	}

	c.logger.Info().Int("count", len(msgs)).Msg("received messages")
	for i := range msgs {
		// Strictly sequential: message n is handled and deleted before n+1.
		c.processMessage(ctx, msgs[i])
	}
	c.notify(Lifecycle{Type: PollDone, Batch: len(msgs), Duration: c.clock.Since(start)})
	return len(msgs)
}

// processMessage decodes, dispatches, and acknowledges one message. Faults
// are contained: a decode or handler error leaves the message undeleted for
// redelivery and moves on; an unknown event type is warned about and still
// acknowledged.
func (c *Consumer) processMessage(ctx context.Context, msg QueueMessage) {
	start := c.clock.Now()

	env, err := c.decodeBody(msg.Body)
	if err != nil {
		c.logger.Error().Err(err).Str("message_id", msg.ID).Msg("message body not decodable, leaving for redelivery")
		c.notify(Lifecycle{Type: MessageDone, MessageID: msg.ID, Duration: c.clock.Since(start), Err: err})
		return
	}

	handler, ok := c.handlers[env.EventType]
	if !ok {
		// Known gap: unrecognized events are dropped, not dead-lettered.
		c.logger.Warn().
			Str("message_id", msg.ID).
			Str("event_type", env.EventType).
			Msg("no handler for event type, acknowledging")
		c.deleteMessage(ctx, msg)
		c.notify(Lifecycle{Type: MessageDone, MessageID: msg.ID, EventType: env.EventType, Duration: c.clock.Since(start)})
		return
	}

	wrapped := Chain(RecoveryMiddleware()(handler), c.middlewares...)
	if err := wrapped(ctx, env); err != nil {
		c.logger.Error().
			Err(err).
			Str("message_id", msg.ID).
			Str("event_type", env.EventType).
			Msg("handler failed, leaving message for redelivery")
		c.notify(Lifecycle{Type: MessageDone, MessageID: msg.ID, EventType: env.EventType, Duration: c.clock.Since(start), Err: err})
		return
	}

	c.deleteMessage(ctx, msg)
	c.notify(Lifecycle{Type: MessageDone, MessageID: msg.ID, EventType: env.EventType, Duration: c.clock.Since(start)})
}

// decodeBody parses a message body as an event envelope, falling back to
// the bus-forwarded record shape ("detail-type" + "detail"). Any valid JSON
// object decodes; the event type may come out empty, which dispatch treats
// as unknown.
func (c *Consumer) decodeBody(body string) (Envelope, error) {
	var env Envelope
	if err := c.codec.Unmarshal([]byte(body), &env); err == nil && env.EventType != "" {
		return env, nil
	}

	// Bus-forwarded record: {"id": …, "detail-type": …, "source": …, "detail": {…}}
	var record struct {
		ID         string          `json:"id"`
		DetailType string          `json:"detail-type"`
		Source     string          `json:"source"`
		Time       string          `json:"time"`
		Detail     json.RawMessage `json:"detail"`
	}
	if err := c.codec.Unmarshal([]byte(body), &record); err != nil {
		return Envelope{}, err
	}

	// The forwarded detail may itself be an envelope.
	if len(record.Detail) > 0 {
		var inner Envelope
		if err := c.codec.Unmarshal(record.Detail, &inner); err == nil && inner.EventType != "" {
			return inner, nil
		}
	}

	return Envelope{
		EventID:   record.ID,
		EventType: record.DetailType,
		Source:    record.Source,
		Timestamp: record.Time,
		Payload:   record.Detail,
	}, nil
}

// deleteMessage acknowledges a message via its receipt handle. A delete
// failure is logged and the message stays eligible for redelivery; the
// batch continues either way.
func (c *Consumer) deleteMessage(ctx context.Context, msg QueueMessage) {
	if err := c.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		c.logger.Error().Err(err).Str("message_id", msg.ID).Msg("message delete failed")
		return
	}
	c.logger.Debug().Str("message_id", msg.ID).Msg("message deleted")
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	b, _ := json.Marshal(v)
	return string(b)
}
