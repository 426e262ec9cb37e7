package xcheckout

import (
	"fmt"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

const creditCardPrefix = "CC-TXN-"

// CreditCardStrategy simulates credit card authorization. A production build
// would call a payment gateway here; this core fabricates the approval.
type CreditCardStrategy struct {
	clock  xclock.Clock
	logger *xlog.Logger
}

var _ Strategy = (*CreditCardStrategy)(nil)

func NewCreditCardStrategy(clock xclock.Clock, logger *xlog.Logger) *CreditCardStrategy {
	if clock == nil {
		clock = xclock.Default()
	}
	return &CreditCardStrategy{clock: clock, logger: strategyLogger(logger, CreditCard)}
}

func (s *CreditCardStrategy) Process(req PaymentRequest) PaymentResult {
	s.logger.Debug().Str("origin", req.Origin).Str("amount", req.Amount).Msg("processing credit card payment")

	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.logger.Warn().Err(err).Msg("credit card validation failed")
		return failureResult(s.clock, err.Error())
	}

	transactionID := newTransactionID(creditCardPrefix)
	message := fmt.Sprintf("Credit card payment approved. Amount: R$ %s", amount.StringFixed(2))

	s.logger.Info().Str("transaction_id", transactionID).Str("amount", amount.String()).Msg("credit card payment approved")
	return MustPaymentResult(true, transactionID, message, s.clock.Now().UnixMilli())
}
