package xcheckout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	at, err := time.Parse(envelopeTimeLayout, s)
	require.NoError(t, err)
	return at
}

// fakeBus records every entry it receives and can be primed to fail either
// at the transport level (err) or per entry (result).
type fakeBus struct {
	mu      sync.Mutex
	entries []BusEntry
	result  PutResult
	err     error
	closed  bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{}
}

func (b *fakeBus) PutEvents(_ context.Context, entries ...BusEntry) (PutResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return PutResult{}, b.err
	}
	b.entries = append(b.entries, entries...)
	if b.result.FailedEntryCount > 0 || len(b.result.Entries) > 0 {
		return b.result, nil
	}
	res := PutResult{Entries: make([]PutResultEntry, len(entries))}
	for i := range entries {
		res.Entries[i] = PutResultEntry{EventID: "evt-1"}
	}
	return res, nil
}

func (b *fakeBus) Close(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBus) Entries() []BusEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]BusEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// fakeQueue serves a fixed batch per Receive call and records deletes.
type fakeQueue struct {
	mu         sync.Mutex
	batches    [][]QueueMessage
	receiveErr error
	deleteErr  error
	deleted    []string
	receives   int
}

func newFakeQueue(batches ...[]QueueMessage) *fakeQueue {
	return &fakeQueue{batches: batches}
}

func (q *fakeQueue) Receive(_ context.Context, _ ReceiveOptions) ([]QueueMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.receives++
	if q.receiveErr != nil {
		return nil, q.receiveErr
	}
	if len(q.batches) == 0 {
		return nil, nil
	}
	batch := q.batches[0]
	q.batches = q.batches[1:]
	return batch, nil
}

func (q *fakeQueue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deleteErr != nil {
		return q.deleteErr
	}
	q.deleted = append(q.deleted, receiptHandle)
	return nil
}

func (q *fakeQueue) Close(context.Context) error { return nil }

func (q *fakeQueue) Deleted() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.deleted))
	copy(out, q.deleted)
	return out
}

// panicStrategy always panics; used to exercise the dispatch panic guard.
type panicStrategy struct{}

func (panicStrategy) Process(PaymentRequest) PaymentResult {
	panic("strategy exploded")
}

// failingStrategy always returns a failed business result.
type failingStrategy struct{}

func (failingStrategy) Process(PaymentRequest) PaymentResult {
	return MustPaymentResult(false, "ERROR-fixed", "declined", 1)
}
