// Package xcheckout is an event-driven payment-processing core.
//
// A payment request is dispatched to one of several interchangeable
// processing strategies (credit card, PIX, boleto); the outcome of a
// successful payment is propagated as a PAYMENT_PROCESSED event on an
// external bus, and an independent consumer loop long-polls an external
// queue, dispatching decoded events to registered handlers and
// acknowledging them.
//
// The transaction artifacts are fabricated: QR payloads are not valid
// BR Codes and barcodes are not FEBRABAN-valid. Event delivery is
// at-least-once and best-effort; a rejected bus entry never fails the
// payment that produced it.
//
// Concrete bus/queue backends live under adapter/: awsbridge and awssqs
// for EventBridge/SQS, redisstream for Redis Streams, and memory for
// development and tests.
package xcheckout
