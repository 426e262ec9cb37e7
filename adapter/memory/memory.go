// Package memory provides in-memory Bus and Queue backends for xcheckout.
// Not suitable for production but excellent for local development and tests:
// the queue implements long polling, receipt handles and at-least-once
// redelivery on a visibility timeout, and the bus can forward published
// events straight into a queue the way the real bus routes onto the real
// queue.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/trickstertwo/xcheckout"
)

// Config controls memory queue behavior.
type Config struct {
	// VisibilityTimeout is how long a received message stays invisible
	// before becoming eligible for redelivery (default: 30s).
	VisibilityTimeout time.Duration
}

// Defaults returns a Config with development-safe defaults.
func Defaults() Config {
	return Config{VisibilityTimeout: 30 * time.Second}
}

// Queue is an in-memory xcheckout.Queue.
type Queue struct {
	cfg Config

	mu       sync.Mutex
	ready    []message
	inflight map[string]inflightMessage
	notify   chan struct{}

	closed atomic.Bool
}

type message struct {
	id   string
	body string
}

type inflightMessage struct {
	msg       message
	visibleAt time.Time
}

var _ xcheckout.Queue = (*Queue)(nil)

// NewQueue creates an empty in-memory queue.
func NewQueue(cfg Config) *Queue {
	if cfg.VisibilityTimeout <= 0 {
		cfg.VisibilityTimeout = Defaults().VisibilityTimeout
	}
	return &Queue{
		cfg:      cfg,
		inflight: make(map[string]inflightMessage),
		notify:   make(chan struct{}, 1),
	}
}

// Enqueue appends a message body and returns its id.
func (q *Queue) Enqueue(body string) string {
	id := uuid.NewString()
	q.mu.Lock()
	q.ready = append(q.ready, message{id: id, body: body})
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return id
}

// Len reports how many messages are currently visible.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.requeueExpiredLocked()
	return len(q.ready)
}

// Receive implements long polling: it returns up to MaxMessages immediately
// when available, otherwise waits up to WaitTime for an arrival. Received
// messages get a fresh receipt handle and stay invisible until deleted or
// the visibility timeout lapses.
func (q *Queue) Receive(ctx context.Context, opts xcheckout.ReceiveOptions) ([]xcheckout.QueueMessage, error) {
	if q.closed.Load() {
		return nil, fmt.Errorf("memory queue closed")
	}
	max := opts.MaxMessages
	if max < 1 {
		max = 1
	}

	deadline := time.Now().Add(opts.WaitTime)
	for {
		if batch := q.take(max); len(batch) > 0 {
			return batch, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-q.notify:
			timer.Stop()
		case <-timer.C:
			return nil, nil
		}
	}
}

func (q *Queue) take(max int) []xcheckout.QueueMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.requeueExpiredLocked()

	n := len(q.ready)
	if n == 0 {
		return nil
	}
	if n > max {
		n = max
	}

	batch := make([]xcheckout.QueueMessage, 0, n)
	visibleAt := time.Now().Add(q.cfg.VisibilityTimeout)
	for _, m := range q.ready[:n] {
		receipt := uuid.NewString()
		q.inflight[receipt] = inflightMessage{msg: m, visibleAt: visibleAt}
		batch = append(batch, xcheckout.QueueMessage{ID: m.id, ReceiptHandle: receipt, Body: m.body})
	}
	q.ready = q.ready[n:]
	return batch
}

// requeueExpiredLocked returns invisible messages whose visibility timeout
// lapsed back to the front of the queue. Caller holds q.mu.
func (q *Queue) requeueExpiredLocked() {
	now := time.Now()
	for receipt, in := range q.inflight {
		if now.After(in.visibleAt) {
			q.ready = append([]message{in.msg}, q.ready...)
			delete(q.inflight, receipt)
		}
	}
}

// Delete acknowledges a message by its receipt handle.
func (q *Queue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inflight[receiptHandle]; !ok {
		return fmt.Errorf("unknown receipt handle: %s", receiptHandle)
	}
	delete(q.inflight, receiptHandle)
	return nil
}

func (q *Queue) Close(_ context.Context) error {
	q.closed.Store(true)
	return nil
}

// Bus is an in-memory xcheckout.Bus. Every accepted entry is recorded, and
// optionally forwarded into a Queue as a bus-routed record so a local
// consumer sees the same shape the real queue delivers.
type Bus struct {
	mu      sync.Mutex
	entries []xcheckout.BusEntry
	forward *Queue
	closed  atomic.Bool
}

var _ xcheckout.Bus = (*Bus)(nil)

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithForward routes every accepted entry into the given queue.
func WithForward(q *Queue) BusOption {
	return func(b *Bus) { b.forward = q }
}

func NewBus(opts ...BusOption) *Bus {
	b := &Bus{}
	for _, o := range opts {
		if o != nil {
			o(b)
		}
	}
	return b
}

// Entries returns a copy of everything accepted so far.
func (b *Bus) Entries() []xcheckout.BusEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]xcheckout.BusEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

func (b *Bus) PutEvents(_ context.Context, entries ...xcheckout.BusEntry) (xcheckout.PutResult, error) {
	if b.closed.Load() {
		return xcheckout.PutResult{}, fmt.Errorf("memory bus closed")
	}

	res := xcheckout.PutResult{Entries: make([]xcheckout.PutResultEntry, 0, len(entries))}
	b.mu.Lock()
	for _, e := range entries {
		id := uuid.NewString()
		b.entries = append(b.entries, e)
		res.Entries = append(res.Entries, xcheckout.PutResultEntry{EventID: id})
		if b.forward != nil {
			b.forward.Enqueue(forwardedRecord(id, e))
		}
	}
	b.mu.Unlock()
	return res, nil
}

func (b *Bus) Close(_ context.Context) error {
	b.closed.Store(true)
	return nil
}

// forwardedRecord renders the record shape the real bus delivers onto the
// real queue: detail-type and source at the top level, detail embedded raw.
func forwardedRecord(id string, e xcheckout.BusEntry) string {
	record := map[string]any{
		"id":          id,
		"detail-type": e.DetailType,
		"source":      e.Source,
		"detail":      json.RawMessage(e.Detail),
	}
	body, err := json.Marshal(record)
	if err != nil {
		// Detail was not valid JSON; deliver it as a plain string instead.
		record["detail"] = e.Detail
		body, _ = json.Marshal(record)
	}
	return string(body)
}
