package xcheckout

import (
	"context"
	"fmt"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// Dispatcher orchestrates one payment: resolve the strategy, run it, and
// propagate the outcome as a PAYMENT_PROCESSED event. It is safe for
// concurrent use; the registry is read-only and strategies are stateless.
type Dispatcher struct {
	notifier
	registry  *Registry
	publisher *Publisher
	clock     xclock.Clock
	logger    *xlog.Logger
}

// NewDispatcher wires a dispatcher. The publisher may be nil, in which case
// outcomes are processed but never propagated (useful in tests and tooling).
func NewDispatcher(registry *Registry, publisher *Publisher, clock xclock.Clock, logger *xlog.Logger) *Dispatcher {
	if clock == nil {
		clock = xclock.Default()
	}
	if logger == nil {
		logger = xlog.Default()
	}
	return &Dispatcher{registry: registry, publisher: publisher, clock: clock, logger: logger}
}

// Execute runs the full dispatch flow for one request.
//
// An unregistered payment type comes back as an UnsupportedTypeError — a
// client error, never retried. A strategy that somehow faults at runtime is
// wrapped in a ProcessingError. A failed PaymentResult is returned to the
// caller but deliberately not published: failed attempts are not broadcast
// as domain events. Exactly one publish happens per successful result.
func (d *Dispatcher) Execute(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	d.logger.Info().
		Str("method", req.Method.String()).
		Str("origin", req.Origin).
		Str("amount", req.Amount).
		Msg("dispatching payment")
	d.notify(Lifecycle{Type: DispatchStart, Method: req.Method})
	start := d.clock.Now()

	strategy, err := d.registry.Resolve(req.Method)
	if err != nil {
		d.notify(Lifecycle{Type: DispatchDone, Method: req.Method, Duration: d.clock.Since(start), Err: err})
		return PaymentResult{}, err
	}

	result, err := d.process(strategy, req)
	if err != nil {
		d.logger.Error().Err(err).Str("method", req.Method.String()).Msg("strategy fault")
		d.notify(Lifecycle{Type: DispatchDone, Method: req.Method, Duration: d.clock.Since(start), Err: err})
		return PaymentResult{}, err
	}

	if result.Success {
		d.publishProcessed(ctx, req, result)
	}

	d.logger.Info().
		Str("method", req.Method.String()).
		Str("transaction_id", result.TransactionID).
		Bool("success", result.Success).
		Msg("payment dispatched")
	d.notify(Lifecycle{Type: DispatchDone, Method: req.Method, Duration: d.clock.Since(start)})
	return result, nil
}

// process invokes the strategy behind a panic guard. Strategies promise not
// to throw past their boundary, but the dispatcher does not bet on it.
func (d *Dispatcher) process(strategy Strategy, req PaymentRequest) (result PaymentResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(error)
			if !ok {
				perr = fmt.Errorf("%v", r)
			}
			err = &ProcessingError{Method: req.Method, cause: perr}
		}
	}()
	return strategy.Process(req), nil
}

// publishProcessed emits the PAYMENT_PROCESSED event for a successful
// result. Publish failures of any kind are logged and swallowed here: the
// payment itself is never rolled back or retried because its event was lost.
func (d *Dispatcher) publishProcessed(ctx context.Context, req PaymentRequest, result PaymentResult) {
	if d.publisher == nil {
		return
	}
	detail := PaymentProcessedDetail{
		Origem:        req.Origin,
		Valor:         req.Amount,
		Status:        EventPaymentProcessed,
		TransactionID: result.TransactionID,
		PaymentType:   req.Method.String(),
	}
	outcome, err := d.publisher.Publish(ctx, EventPaymentProcessed, detail)
	if err != nil {
		d.logger.Error().
			Err(err).
			Str("transaction_id", result.TransactionID).
			Msg("payment event publish failed")
		return
	}
	if !outcome.Delivered {
		d.logger.Warn().
			Str("transaction_id", result.TransactionID).
			Str("error_code", outcome.ErrorCode).
			Msg("payment event not delivered")
	}
}
