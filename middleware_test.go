package xcheckout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware()(func(context.Context, Envelope) error {
		panic("boom")
	})
	err := h(context.Background(), Envelope{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic recovered")
	assert.Contains(t, err.Error(), "boom")
}

func TestTimeoutMiddleware(t *testing.T) {
	t.Run("fast handler passes through", func(t *testing.T) {
		h := TimeoutMiddleware(time.Second)(func(context.Context, Envelope) error {
			return nil
		})
		assert.NoError(t, h(context.Background(), Envelope{}))
	})

	t.Run("slow handler times out", func(t *testing.T) {
		h := TimeoutMiddleware(10 * time.Millisecond)(func(ctx context.Context, _ Envelope) error {
			<-ctx.Done()
			return ctx.Err()
		})
		err := h(context.Background(), Envelope{})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("non-positive duration is a no-op", func(t *testing.T) {
		called := false
		h := TimeoutMiddleware(0)(func(context.Context, Envelope) error {
			called = true
			return nil
		})
		require.NoError(t, h(context.Background(), Envelope{}))
		assert.True(t, called)
	})
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, env Envelope) error {
				order = append(order, name)
				return next(ctx, env)
			}
		}
	}

	h := Chain(func(context.Context, Envelope) error {
		order = append(order, "handler")
		return nil
	}, mw("outer"), mw("inner"))

	require.NoError(t, h(context.Background(), Envelope{}))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestChain_SkipsNilAndPropagatesError(t *testing.T) {
	want := errors.New("handler failed")
	h := Chain(func(context.Context, Envelope) error { return want }, nil)
	assert.ErrorIs(t, h(context.Background(), Envelope{}), want)
}
