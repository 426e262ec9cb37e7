package xcheckout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisher_Validation(t *testing.T) {
	_, err := NewPublisher(nil, PublisherDefaults(), nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoBusConfigured)

	_, err = NewPublisher(newFakeBus(), PublisherConfig{Source: "x"}, nil, nil, nil)
	assert.ErrorContains(t, err, "bus name")

	_, err = NewPublisher(newFakeBus(), PublisherConfig{BusName: "x"}, nil, nil, nil)
	assert.ErrorContains(t, err, "source")
}

func TestPublisher_Publish_Delivered(t *testing.T) {
	bus := newFakeBus()
	pub := newTestPublisher(t, bus)

	outcome, err := pub.Publish(context.Background(), EventCheckoutCreated, map[string]string{"orderId": "42"})
	require.NoError(t, err)
	assert.True(t, outcome.Delivered)
	assert.Equal(t, "evt-1", outcome.BusEntryID)
	assert.Empty(t, outcome.ErrorCode)

	entries := bus.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, EventCheckoutCreated, entries[0].DetailType)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(entries[0].Detail), &env))
	assert.Equal(t, SourceCheckout, env.Source)
	assert.NotEmpty(t, env.Timestamp)
}

func TestPublisher_Publish_EntryRejected(t *testing.T) {
	bus := newFakeBus()
	bus.result = PutResult{
		FailedEntryCount: 1,
		Entries:          []PutResultEntry{{ErrorCode: "InternalFailure", ErrorMessage: "shard unavailable"}},
	}
	pub := newTestPublisher(t, bus)

	outcome, err := pub.Publish(context.Background(), EventCheckoutCompleted, map[string]string{})
	require.NoError(t, err, "a rejected entry is an outcome, not an error")
	assert.False(t, outcome.Delivered)
	assert.Equal(t, "InternalFailure", outcome.ErrorCode)
}

func TestPublisher_Publish_TransportFault(t *testing.T) {
	bus := newFakeBus()
	bus.err = errors.New("connection refused")
	pub := newTestPublisher(t, bus)

	_, err := pub.Publish(context.Background(), EventCheckoutCreated, map[string]string{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")
}

func TestPublisher_Publish_UnencodablePayload(t *testing.T) {
	pub := newTestPublisher(t, newFakeBus())
	_, err := pub.Publish(context.Background(), EventCheckoutCreated, func() {})
	assert.Error(t, err)
}

func TestPublisher_FinishOrder_LegacyShape(t *testing.T) {
	bus := newFakeBus()
	pub := newTestPublisher(t, bus)

	outcome, err := pub.FinishOrder(context.Background(), "loja-1", "250.00", "COMPLETED")
	require.NoError(t, err)
	assert.True(t, outcome.Delivered)

	entries := bus.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "loja-1", entries[0].Source)
	assert.Equal(t, "COMPLETED", entries[0].DetailType)
	assert.JSONEq(t, `{"valor":"250.00"}`, entries[0].Detail)
}

func TestPublisher_FinishOrder_NotifiesLifecycle(t *testing.T) {
	pub := newTestPublisher(t, newFakeBus())

	var events []Lifecycle
	pub.observers = []Observer{ObserverFunc(func(e Lifecycle) { events = append(events, e) })}

	_, err := pub.FinishOrder(context.Background(), "loja-1", "99.00", "COMPLETED")
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, PublishDone, events[0].Type)
	assert.Equal(t, "COMPLETED", events[0].EventType)
	assert.NoError(t, events[0].Err)
}

func TestEnvelope_Construction(t *testing.T) {
	at := mustParseTime(t, "2026-09-01T10:30:00.000Z")
	env := NewEnvelope(EventFileUploaded, SourceManagerFile, at, json.RawMessage(`{"name":"a.csv"}`))

	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, EventFileUploaded, env.EventType)
	assert.Equal(t, SourceManagerFile, env.Source)
	assert.Equal(t, "2026-09-01T10:30:00.000Z", env.Timestamp)
	assert.Equal(t, EnvelopeVersion, env.Version)

	t.Run("with correlation and metadata are copies", func(t *testing.T) {
		tagged := env.WithCorrelation("corr-1").WithMetadata(map[string]string{"k": "v"})
		assert.Empty(t, env.CorrelationID)
		assert.Nil(t, env.Metadata)
		assert.Equal(t, "corr-1", tagged.CorrelationID)
		assert.Equal(t, "v", tagged.Metadata["k"])
	})

	t.Run("two envelopes never share an id", func(t *testing.T) {
		other := NewEnvelope(EventFileUploaded, SourceManagerFile, at, nil)
		assert.NotEqual(t, env.EventID, other.EventID)
	})
}
