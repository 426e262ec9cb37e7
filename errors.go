package xcheckout

import (
	"errors"
	"fmt"
)

// UnsupportedTypeError reports a payment type with no registered strategy.
// It is a client-visible error and is never retried.
type UnsupportedTypeError struct {
	Method PaymentMethod
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("payment type not supported: %s", e.Method)
}

// ProcessingError wraps an unexpected runtime fault raised while a strategy
// was executing. Business-rule rejections never take this path; they come
// back as a failed PaymentResult.
type ProcessingError struct {
	Method PaymentMethod
	cause  error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("payment processing failed for %s: %v", e.Method, e.cause)
}

func (e *ProcessingError) Unwrap() error { return e.cause }

var (
	// ErrConsumerStarted is returned when Start is called on a running consumer.
	ErrConsumerStarted = errors.New("xcheckout: consumer already started")
	// ErrNoBusConfigured is returned by the builder when no Bus was supplied.
	ErrNoBusConfigured = errors.New("xcheckout: no bus configured")
	// ErrNoQueueConfigured is returned by the builder when a consumer was
	// requested without a Queue.
	ErrNoQueueConfigured = errors.New("xcheckout: no queue configured")
)
