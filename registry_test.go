package xcheckout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry(nil, nil)

	t.Run("resolves registered methods", func(t *testing.T) {
		for _, m := range []PaymentMethod{CreditCard, Pix, Boleto} {
			s, err := reg.Resolve(m)
			require.NoError(t, err, "method %s", m)
			assert.NotNil(t, s)
			assert.True(t, reg.Supports(m))
		}
	})

	t.Run("debit card has no strategy", func(t *testing.T) {
		_, err := reg.Resolve(DebitCard)
		require.Error(t, err)

		var ute *UnsupportedTypeError
		require.ErrorAs(t, err, &ute)
		assert.Equal(t, DebitCard, ute.Method)
		assert.False(t, reg.Supports(DebitCard))
	})

	t.Run("supported is sorted", func(t *testing.T) {
		assert.Equal(t, []PaymentMethod{Boleto, CreditCard, Pix}, reg.Supported())
	})
}

func TestNewRegistry_SkipsNilStrategies(t *testing.T) {
	reg := NewRegistry(map[PaymentMethod]Strategy{
		Pix:        NewPixStrategy(nil, nil),
		CreditCard: nil,
	})
	assert.True(t, reg.Supports(Pix))
	assert.False(t, reg.Supports(CreditCard))
}
