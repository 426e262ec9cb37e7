package xcheckout

import (
	"fmt"
	"strings"
)

// PaymentMethod enumerates the payment types the checkout accepts.
type PaymentMethod string

const (
	CreditCard PaymentMethod = "CREDIT_CARD"
	DebitCard  PaymentMethod = "DEBIT_CARD"
	Pix        PaymentMethod = "PIX"
	Boleto     PaymentMethod = "BOLETO"
)

// ParseMethod normalizes a wire value ("pix", "CREDIT_CARD", "credit_card")
// into a PaymentMethod. Unknown values return an UnsupportedTypeError so the
// caller can surface it as a client error.
func ParseMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s))); m {
	case CreditCard, DebitCard, Pix, Boleto:
		return m, nil
	default:
		return "", &UnsupportedTypeError{Method: m}
	}
}

// String returns the canonical uppercase tag.
func (m PaymentMethod) String() string { return string(m) }

// PaymentRequest is the inbound payment submission.
// Amount travels as a string to avoid floating-point money.
type PaymentRequest struct {
	Origin string        `json:"origin"`
	Amount string        `json:"amount"`
	Method PaymentMethod `json:"paymentType"`
}

// PaymentResult is the immutable outcome of processing one payment.
type PaymentResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	Message       string `json:"message"`
	// Timestamp is Unix milliseconds of the processing instant.
	Timestamp int64 `json:"timestamp"`
}

// NewPaymentResult validates the PaymentResult contract: a non-blank
// transaction id and message, and a positive timestamp. Violations are
// construction bugs, not business failures, so they surface as errors here
// instead of producing a silently defaulted result.
func NewPaymentResult(success bool, transactionID, message string, timestamp int64) (PaymentResult, error) {
	if strings.TrimSpace(transactionID) == "" {
		return PaymentResult{}, fmt.Errorf("payment result: transaction id must not be blank")
	}
	if strings.TrimSpace(message) == "" {
		return PaymentResult{}, fmt.Errorf("payment result: message must not be blank")
	}
	if timestamp <= 0 {
		return PaymentResult{}, fmt.Errorf("payment result: timestamp must be positive, got %d", timestamp)
	}
	return PaymentResult{
		Success:       success,
		TransactionID: transactionID,
		Message:       message,
		Timestamp:     timestamp,
	}, nil
}

// MustPaymentResult is NewPaymentResult that panics on a contract violation.
// Intended for construction sites that already guarantee the invariants.
func MustPaymentResult(success bool, transactionID, message string, timestamp int64) PaymentResult {
	r, err := NewPaymentResult(success, transactionID, message, timestamp)
	if err != nil {
		panic(err)
	}
	return r
}
