package xcheckout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_RequiresBus(t *testing.T) {
	_, err := NewBuilder().Build()
	assert.ErrorIs(t, err, ErrNoBusConfigured)
}

func TestBuilder_DispatchOnly(t *testing.T) {
	ck, err := NewBuilder().WithBus(newFakeBus()).Build()
	require.NoError(t, err)
	assert.Nil(t, ck.Consumer())
	assert.NotNil(t, ck.Dispatcher())
	assert.NotNil(t, ck.Publisher())
	assert.NotNil(t, ck.Clock())

	result, err := ck.Pay(context.Background(), PaymentRequest{
		Origin: "web", Amount: "10", Method: CreditCard,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestBuilder_UnknownCodec(t *testing.T) {
	_, err := NewBuilder().WithBus(newFakeBus()).WithCodec("protobuf").Build()
	assert.ErrorContains(t, err, "not registered")
}

func TestBuilder_FullWiring(t *testing.T) {
	bus := newFakeBus()
	queue := newFakeQueue()

	var observed []LifecycleType
	ck, err := NewBuilder().
		WithBus(bus).
		WithQueue(queue).
		WithPublisherConfig(PublisherConfig{BusName: "orders", Source: "tests"}).
		WithConsumerConfig(ConsumerConfig{
			QueueURL:     "q",
			MaxMessages:  5,
			WaitTime:     0,
			PollInterval: 10 * time.Millisecond,
		}).
		Handle(EventCheckoutCreated, func(context.Context, Envelope) error { return nil }).
		WithObserver(ObserverFunc(func(e Lifecycle) { observed = append(observed, e.Type) })).
		Build()
	require.NoError(t, err)
	require.NotNil(t, ck.Consumer())

	_, err = ck.Pay(context.Background(), PaymentRequest{
		Origin: "web", Amount: "20", Method: Pix,
	})
	require.NoError(t, err)

	entries := bus.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "orders", entries[0].EventBusName)
	assert.Equal(t, "tests", entries[0].Source)
	assert.Contains(t, observed, DispatchDone)
	assert.Contains(t, observed, PublishDone)

	require.NoError(t, ck.Close(context.Background()))
	assert.True(t, bus.closed)
}

func TestFacade_Default(t *testing.T) {
	bus := newFakeBus()
	ck, err := NewBuilder().WithBus(bus).Build()
	require.NoError(t, err)
	SetDefault(ck)

	result, err := Pay(context.Background(), PaymentRequest{
		Origin: "cli", Amount: "1.99", Method: Boleto,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, bus.Entries(), 1)

	assert.Panics(t, func() { SetDefault(nil) })
}

func TestCodecRegistry(t *testing.T) {
	c, err := NewCodec("json")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	_, err = NewCodec("msgpack")
	assert.Error(t, err)

	assert.Error(t, RegisterCodec("", func() Codec { return JSONCodec{} }))
	assert.Error(t, RegisterCodec("x", nil))
	require.NoError(t, RegisterCodec("json2", func() Codec { return JSONCodec{} }))
	c, err = NewCodec("json2")
	require.NoError(t, err)
	assert.NotNil(t, c)
}
