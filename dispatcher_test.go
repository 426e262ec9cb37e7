package xcheckout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(t *testing.T, bus Bus) *Publisher {
	t.Helper()
	pub, err := NewPublisher(bus, PublisherDefaults(), nil, nil, nil)
	require.NoError(t, err)
	return pub
}

func TestDispatcher_Execute_Success(t *testing.T) {
	bus := newFakeBus()
	d := NewDispatcher(DefaultRegistry(nil, nil), newTestPublisher(t, bus), nil, nil)

	result, err := d.Execute(context.Background(), PaymentRequest{
		Origin: "web", Amount: "99.90", Method: CreditCard,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	entries := bus.Entries()
	require.Len(t, entries, 1, "exactly one publish per successful payment")
	entry := entries[0]
	assert.Equal(t, SourceCheckout, entry.Source)
	assert.Equal(t, EventPaymentProcessed, entry.DetailType)
	assert.Equal(t, "status-pedido-bus", entry.EventBusName)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(entry.Detail), &env))
	assert.Equal(t, EventPaymentProcessed, env.EventType)
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.NotEmpty(t, env.EventID)

	detail, err := DecodePayload[PaymentProcessedDetail](JSONCodec{}, env)
	require.NoError(t, err)
	assert.Equal(t, "web", detail.Origem)
	assert.Equal(t, "99.90", detail.Valor)
	assert.Equal(t, EventPaymentProcessed, detail.Status)
	assert.Equal(t, result.TransactionID, detail.TransactionID)
	assert.Equal(t, "CREDIT_CARD", detail.PaymentType)
}

func TestDispatcher_Execute_UnsupportedType(t *testing.T) {
	bus := newFakeBus()
	d := NewDispatcher(DefaultRegistry(nil, nil), newTestPublisher(t, bus), nil, nil)

	_, err := d.Execute(context.Background(), PaymentRequest{
		Origin: "web", Amount: "10", Method: DebitCard,
	})
	require.Error(t, err)

	var ute *UnsupportedTypeError
	assert.ErrorAs(t, err, &ute)
	assert.Empty(t, bus.Entries())
}

func TestDispatcher_Execute_FailedResultNotPublished(t *testing.T) {
	bus := newFakeBus()
	reg := NewRegistry(map[PaymentMethod]Strategy{CreditCard: failingStrategy{}})
	d := NewDispatcher(reg, newTestPublisher(t, bus), nil, nil)

	result, err := d.Execute(context.Background(), PaymentRequest{
		Origin: "web", Amount: "10", Method: CreditCard,
	})
	require.NoError(t, err, "business failure is a result, not an error")
	assert.False(t, result.Success)
	assert.Empty(t, bus.Entries(), "failed attempts are not broadcast")
}

func TestDispatcher_Execute_PanicBecomesProcessingError(t *testing.T) {
	bus := newFakeBus()
	reg := NewRegistry(map[PaymentMethod]Strategy{Pix: panicStrategy{}})
	d := NewDispatcher(reg, newTestPublisher(t, bus), nil, nil)

	_, err := d.Execute(context.Background(), PaymentRequest{
		Origin: "web", Amount: "10", Method: Pix,
	})
	require.Error(t, err)

	var pe *ProcessingError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, Pix, pe.Method)
	assert.Contains(t, err.Error(), "strategy exploded")
	assert.Empty(t, bus.Entries())
}

func TestDispatcher_Execute_PublishFailureDoesNotFailPayment(t *testing.T) {
	t.Run("transport fault", func(t *testing.T) {
		bus := newFakeBus()
		bus.err = errors.New("bus unreachable")
		d := NewDispatcher(DefaultRegistry(nil, nil), newTestPublisher(t, bus), nil, nil)

		result, err := d.Execute(context.Background(), PaymentRequest{
			Origin: "web", Amount: "10", Method: Pix,
		})
		require.NoError(t, err, "a lost event never rolls back the payment")
		assert.True(t, result.Success)
	})

	t.Run("entry rejected", func(t *testing.T) {
		bus := newFakeBus()
		bus.result = PutResult{
			FailedEntryCount: 1,
			Entries:          []PutResultEntry{{ErrorCode: "ThrottlingException"}},
		}
		d := NewDispatcher(DefaultRegistry(nil, nil), newTestPublisher(t, bus), nil, nil)

		result, err := d.Execute(context.Background(), PaymentRequest{
			Origin: "web", Amount: "10", Method: Pix,
		})
		require.NoError(t, err)
		assert.True(t, result.Success)
	})
}

func TestDispatcher_NilPublisher(t *testing.T) {
	d := NewDispatcher(DefaultRegistry(nil, nil), nil, nil, nil)
	result, err := d.Execute(context.Background(), PaymentRequest{
		Origin: "cli", Amount: "5", Method: Boleto,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestDispatcher_ObserverSeesLifecycle(t *testing.T) {
	var events []Lifecycle
	d := NewDispatcher(DefaultRegistry(nil, nil), nil, nil, nil)
	d.observers = []Observer{ObserverFunc(func(e Lifecycle) { events = append(events, e) })}

	_, err := d.Execute(context.Background(), PaymentRequest{
		Origin: "web", Amount: "10", Method: Pix,
	})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, DispatchStart, events[0].Type)
	assert.Equal(t, DispatchDone, events[1].Type)
	assert.Equal(t, Pix, events[1].Method)
	assert.NoError(t, events[1].Err)
}

func TestDispatcher_ObserverPanicIsContained(t *testing.T) {
	d := NewDispatcher(DefaultRegistry(nil, nil), nil, nil, nil)
	d.observers = []Observer{ObserverFunc(func(Lifecycle) { panic("observer bug") })}

	assert.NotPanics(t, func() {
		_, _ = d.Execute(context.Background(), PaymentRequest{
			Origin: "web", Amount: "10", Method: Pix,
		})
	})
}
