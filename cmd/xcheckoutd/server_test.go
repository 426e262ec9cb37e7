package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xcheckout"
)

func TestBuildPaymentRequest(t *testing.T) {
	t.Run("normalizes lowercase payment types", func(t *testing.T) {
		cases := map[string]xcheckout.PaymentMethod{
			"credit_card": xcheckout.CreditCard,
			"pix":         xcheckout.Pix,
			"boleto":      xcheckout.Boleto,
			"PIX":         xcheckout.Pix,
			"Credit_Card": xcheckout.CreditCard,
		}
		for wire, want := range cases {
			req, err := buildPaymentRequest([]byte(`{"origin":"mobile-app","amount":"50.00","paymentType":"` + wire + `"}`))
			require.NoError(t, err, "wire value %q", wire)
			assert.Equal(t, want, req.Method)
			assert.Equal(t, "mobile-app", req.Origin)
			assert.Equal(t, "50.00", req.Amount)
		}
	})

	t.Run("unknown type is an unsupported-type error", func(t *testing.T) {
		_, err := buildPaymentRequest([]byte(`{"origin":"web","amount":"10","paymentType":"BITCOIN"}`))
		require.Error(t, err)
		var unsupported *xcheckout.UnsupportedTypeError
		assert.ErrorAs(t, err, &unsupported)
	})

	t.Run("missing fields are a validation error", func(t *testing.T) {
		_, err := buildPaymentRequest([]byte(`{"amount":"10","paymentType":"PIX"}`))
		assert.ErrorIs(t, err, errPayRequestIncomplete)

		_, err = buildPaymentRequest([]byte(`{"origin":"web","amount":"10"}`))
		assert.ErrorIs(t, err, errPayRequestIncomplete)
	})

	t.Run("malformed body is a validation error", func(t *testing.T) {
		_, err := buildPaymentRequest([]byte(`not json`))
		require.Error(t, err)
		var unsupported *xcheckout.UnsupportedTypeError
		assert.False(t, errors.As(err, &unsupported), "decode failures are not type errors")
		assert.ErrorContains(t, err, "invalid request body")
	})
}
