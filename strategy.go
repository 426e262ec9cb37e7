package xcheckout

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// Strategy is the pluggable processing contract for one payment method.
// Implementations are stateless pure functions over the request: they never
// return an error and never panic past their own boundary — every rejection
// is converted into a failed PaymentResult.
type Strategy interface {
	Process(req PaymentRequest) PaymentResult
}

const errorIDPrefix = "ERROR-"

// parseAmount validates the decimal-as-string amount shared by all
// strategies. The two rejection messages are distinct on purpose: callers
// and tests tell "not a number" apart from "not positive" by substring.
func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("payment amount cannot be empty")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid payment amount format: %s", raw)
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("payment amount must be positive")
	}
	return amount, nil
}

// failureResult builds the failed outcome every strategy returns on a
// validation rejection. The transaction id is still unique so failed
// attempts remain traceable in logs.
func failureResult(clock xclock.Clock, reason string) PaymentResult {
	return MustPaymentResult(false, errorIDPrefix+uuid.NewString(), reason, clock.Now().UnixMilli())
}

// newTransactionID yields "{prefix}{random UUID}". Identical inputs must
// still produce distinct ids, so the id is never derived from the request.
func newTransactionID(prefix string) string {
	return prefix + uuid.NewString()
}

func strategyLogger(l *xlog.Logger, method PaymentMethod) *xlog.Logger {
	if l == nil {
		l = xlog.Default()
	}
	return l.With(xlog.Str("strategy", method.String()))
}
