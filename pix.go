package xcheckout

import (
	"encoding/base64"
	"fmt"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

const (
	pixPrefix       = "PIX-"
	pixMerchantName = "MS-Checkout"
	pixMerchantCity = "Sao Paulo"
)

// PixStrategy fabricates a PIX charge: a base64-encoded QR payload derived
// from a fixed merchant template, the transaction id and the amount. The
// payload is deliberately not a real EMV/BR Code; see the package docs.
type PixStrategy struct {
	clock  xclock.Clock
	logger *xlog.Logger
}

var _ Strategy = (*PixStrategy)(nil)

func NewPixStrategy(clock xclock.Clock, logger *xlog.Logger) *PixStrategy {
	if clock == nil {
		clock = xclock.Default()
	}
	return &PixStrategy{clock: clock, logger: strategyLogger(logger, Pix)}
}

func (s *PixStrategy) Process(req PaymentRequest) PaymentResult {
	s.logger.Debug().Str("origin", req.Origin).Str("amount", req.Amount).Msg("processing pix payment")

	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.logger.Warn().Err(err).Msg("pix validation failed")
		return failureResult(s.clock, err.Error())
	}

	transactionID := newTransactionID(pixPrefix)
	qr := pixQRCode(transactionID, amount.StringFixed(2))
	message := fmt.Sprintf("PIX QR code generated successfully. Amount: R$ %s. QR Code: %s", amount.StringFixed(2), qr)

	s.logger.Info().Str("transaction_id", transactionID).Str("amount", amount.String()).Msg("pix payment processed")
	return MustPaymentResult(true, transactionID, message, s.clock.Now().UnixMilli())
}

// pixQRCode renders the fixed payload template and base64-encodes it for
// transmission. Deterministic for a given transaction id and amount.
func pixQRCode(transactionID, amount string) string {
	payload := fmt.Sprintf("PIX|MERCHANT:%s|CITY:%s|TXN:%s|AMOUNT:%s",
		pixMerchantName, pixMerchantCity, transactionID, amount)
	return base64.StdEncoding.EncodeToString([]byte(payload))
}
