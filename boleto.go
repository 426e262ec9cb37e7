package xcheckout

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

const (
	boletoPrefix       = "BOLETO-"
	boletoBankCode     = "001" // Banco do Brasil
	boletoCurrencyCode = "9"   // Real
	boletoDueDays      = 3
)

// BoletoStrategy fabricates a bank slip: a due date three calendar days out
// and a pseudo-barcode. The barcode is not FEBRABAN-valid (no verification
// digits); it only needs to be stable for a given transaction and amount.
type BoletoStrategy struct {
	clock  xclock.Clock
	logger *xlog.Logger
}

var _ Strategy = (*BoletoStrategy)(nil)

func NewBoletoStrategy(clock xclock.Clock, logger *xlog.Logger) *BoletoStrategy {
	if clock == nil {
		clock = xclock.Default()
	}
	return &BoletoStrategy{clock: clock, logger: strategyLogger(logger, Boleto)}
}

func (s *BoletoStrategy) Process(req PaymentRequest) PaymentResult {
	s.logger.Debug().Str("origin", req.Origin).Str("amount", req.Amount).Msg("processing boleto payment")

	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.logger.Warn().Err(err).Msg("boleto validation failed")
		return failureResult(s.clock, err.Error())
	}

	transactionID := newTransactionID(boletoPrefix)
	dueDate := s.clock.Now().AddDate(0, 0, boletoDueDays)
	barcode := boletoBarcode(transactionID, amount, dueDate)

	message := fmt.Sprintf("Boleto generated successfully. Amount: R$ %s. Due date: %s. Barcode: %s",
		amount.StringFixed(2), dueDate.Format("02/01/2006"), barcode)

	s.logger.Info().
		Str("transaction_id", transactionID).
		Str("amount", amount.String()).
		Str("due_date", dueDate.Format("2006-01-02")).
		Msg("boleto payment processed")
	return MustPaymentResult(true, transactionID, message, s.clock.Now().UnixMilli())
}

// boletoBarcode concatenates bank code, currency code, a 4-digit due-date
// factor, the amount in integer cents zero-padded to 10 digits, and a
// truncated numeric fragment of the transaction id. Amounts with more than
// two decimal places truncate at the cent; that mirrors the fabricated
// artifact, so it is not rounded here.
func boletoBarcode(transactionID string, amount decimal.Decimal, dueDate time.Time) string {
	dueFactor := dueDate.Unix() / 86400 // days since epoch
	cents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	return fmt.Sprintf("%s%s%04d%010d%s",
		boletoBankCode, boletoCurrencyCode, dueFactor%10000, cents, numericFragment(transactionID, 6))
}

// numericFragment keeps the first n decimal digits found in s, zero-padding
// on the right when s carries fewer.
func numericFragment(s string, n int) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == n {
				break
			}
		}
	}
	for b.Len() < n {
		b.WriteByte('0')
	}
	return b.String()
}
