package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/trickstertwo/xlog"

	"github.com/trickstertwo/xcheckout"
)

const (
	codeValidation  = "VALIDATION_ERROR"
	codeInvalidType = "INVALID_PAYMENT_TYPE"
	codeInternal    = "INTERNAL_ERROR"
)

// apiResponse is the uniform HTTP envelope for every endpoint.
type apiResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

func ok(ck *xcheckout.Checkout, message string, data any) apiResponse {
	return apiResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: ck.Clock().Now().UnixMilli(),
	}
}

func fail(ck *xcheckout.Checkout, message, code string) apiResponse {
	return apiResponse{
		Success:   false,
		Message:   message,
		ErrorCode: code,
		Timestamp: ck.Clock().Now().UnixMilli(),
	}
}

type orderRequest struct {
	Origin string `json:"origin"`
	Amount string `json:"amount"`
	Status string `json:"status"`
}

// payRequest is the raw wire shape; paymentType arrives as free-form text
// ("pix", "CREDIT_CARD") and is normalized before dispatch.
type payRequest struct {
	Origin      string `json:"origin"`
	Amount      string `json:"amount"`
	PaymentType string `json:"paymentType"`
}

var errPayRequestIncomplete = errors.New("origin and paymentType are required")

// buildPaymentRequest decodes and normalizes an inbound payment submission.
// An unknown paymentType comes back as an UnsupportedTypeError; everything
// else is a validation failure.
func buildPaymentRequest(body []byte) (xcheckout.PaymentRequest, error) {
	var raw payRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return xcheckout.PaymentRequest{}, fmt.Errorf("invalid request body: %w", err)
	}
	if raw.Origin == "" || raw.PaymentType == "" {
		return xcheckout.PaymentRequest{}, errPayRequestIncomplete
	}
	method, err := xcheckout.ParseMethod(raw.PaymentType)
	if err != nil {
		return xcheckout.PaymentRequest{}, err
	}
	return xcheckout.PaymentRequest{
		Origin: raw.Origin,
		Amount: raw.Amount,
		Method: method,
	}, nil
}

// paymentData is the result payload, with the method echoed back.
type paymentData struct {
	xcheckout.PaymentResult
	PaymentType string `json:"paymentType"`
}

func newServer(ck *xcheckout.Checkout, logger *xlog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "xcheckoutd",
	})

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/checkout/pay", func(c fiber.Ctx) error {
		req, err := buildPaymentRequest(c.Body())
		if err != nil {
			var unsupported *xcheckout.UnsupportedTypeError
			if errors.As(err, &unsupported) {
				return c.Status(fiber.StatusBadRequest).
					JSON(fail(ck, unsupported.Error(), codeInvalidType))
			}
			return c.Status(fiber.StatusBadRequest).
				JSON(fail(ck, err.Error(), codeValidation))
		}

		result, err := ck.Pay(c.Context(), req)
		if err != nil {
			var unsupported *xcheckout.UnsupportedTypeError
			if errors.As(err, &unsupported) {
				return c.Status(fiber.StatusBadRequest).
					JSON(fail(ck, unsupported.Error(), codeInvalidType))
			}
			logger.Error().Err(err).Str("origin", req.Origin).Msg("payment dispatch failed")
			return c.Status(fiber.StatusInternalServerError).
				JSON(fail(ck, "payment processing failed", codeInternal))
		}

		data := paymentData{PaymentResult: result, PaymentType: req.Method.String()}
		if !result.Success {
			return c.Status(fiber.StatusOK).
				JSON(apiResponse{
					Success:   false,
					Message:   result.Message,
					Data:      data,
					Timestamp: ck.Clock().Now().UnixMilli(),
				})
		}
		return c.Status(fiber.StatusOK).
			JSON(ok(ck, "payment processed", data))
	})

	// Legacy order-completion endpoint, kept for callers that predate
	// the strategy flow. Publishes the status event directly.
	app.Post("/orders", func(c fiber.Ctx) error {
		var req orderRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fail(ck, "invalid request body", codeValidation))
		}
		if req.Origin == "" || req.Amount == "" {
			return c.Status(fiber.StatusBadRequest).
				JSON(fail(ck, "origin and amount are required", codeValidation))
		}
		status := req.Status
		if status == "" {
			status = "COMPLETED"
		}

		outcome, err := ck.Publisher().FinishOrder(c.Context(), req.Origin, req.Amount, status)
		if err != nil {
			logger.Error().Err(err).Str("origin", req.Origin).Msg("order event publish failed")
			return c.Status(fiber.StatusInternalServerError).
				JSON(fail(ck, "order event publish failed", codeInternal))
		}
		if !outcome.Delivered {
			return c.Status(fiber.StatusBadGateway).
				JSON(fail(ck, "order event rejected by bus", outcome.ErrorCode))
		}
		return c.Status(fiber.StatusOK).
			JSON(ok(ck, "order finished", fiber.Map{"eventId": outcome.BusEntryID}))
	})

	return app
}
