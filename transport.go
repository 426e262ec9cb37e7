package xcheckout

import (
	"context"
	"time"
)

// BusEntry is one event submitted to the external bus.
type BusEntry struct {
	Source       string
	DetailType   string
	Detail       string
	EventBusName string
}

// PutResultEntry is the per-entry outcome of a bus submission. A non-empty
// ErrorCode means the bus accepted the call but rejected this entry.
type PutResultEntry struct {
	EventID      string
	ErrorCode    string
	ErrorMessage string
}

// PutResult is the bus response for one PutEvents call.
type PutResult struct {
	FailedEntryCount int
	Entries          []PutResultEntry
}

// Bus is the Strategy interface for the external event bus. Implementations
// must distinguish a transport-level fault (returned error) from a rejected
// entry (reported in PutResult); callers treat the two very differently.
// Implementations must be safe for concurrent use.
type Bus interface {
	PutEvents(ctx context.Context, entries ...BusEntry) (PutResult, error)
	Close(ctx context.Context) error
}

// QueueMessage is one message received from the external queue. The receipt
// handle is the opaque capability required to delete it.
type QueueMessage struct {
	ID            string
	ReceiptHandle string
	Body          string
}

// ReceiveOptions bound a single poll call.
type ReceiveOptions struct {
	// MaxMessages caps the batch; backends cap it further (SQS: 10).
	MaxMessages int
	// WaitTime is the long-poll bound: the receive call may block up to this
	// long waiting for messages instead of returning immediately when empty.
	WaitTime time.Duration
}

// Queue is the Strategy interface for the external at-least-once message
// store the consumer drains. Delete removes a message from visibility; a
// message that is never deleted becomes eligible for redelivery under the
// queue's own retry policy. Implementations must be safe for concurrent use.
type Queue interface {
	Receive(ctx context.Context, opts ReceiveOptions) ([]QueueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
	Close(ctx context.Context) error
}
