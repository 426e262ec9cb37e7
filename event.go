package xcheckout

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types shared across the checkout services. The consumer dispatches
// on these; unknown types are logged and acknowledged.
const (
	EventPaymentProcessed = "PAYMENT_PROCESSED"

	EventCheckoutCreated   = "checkout.created"
	EventCheckoutCompleted = "checkout.completed"
	EventCheckoutCancelled = "checkout.cancelled"

	EventFileUploaded         = "file.uploaded"
	EventFileDeleted          = "file.deleted"
	EventFileProcessed        = "file.processed"
	EventFileProcessingFailed = "file.processing.failed"

	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Event sources (service identifiers).
const (
	SourceCheckout    = "checkout-service"
	SourceManagerFile = "manager-file"
)

// EnvelopeVersion is the current event schema version.
const EnvelopeVersion = "1.0"

// envelopeTimeLayout is ISO-8601 with millisecond precision, UTC.
const envelopeTimeLayout = "2006-01-02T15:04:05.000Z"

// Envelope is the wire shape every domain event travels in. An envelope is
// built fresh per publish call and never mutated afterwards; the core does
// not persist it.
type Envelope struct {
	EventID       string            `json:"eventId"`
	EventType     string            `json:"eventType"`
	Source        string            `json:"source"`
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Payload       json.RawMessage   `json:"payload,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEnvelope builds an envelope around an already-encoded payload.
func NewEnvelope(eventType, source string, at time.Time, payload json.RawMessage) Envelope {
	return Envelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Source:    source,
		Timestamp: at.UTC().Format(envelopeTimeLayout),
		Version:   EnvelopeVersion,
		Payload:   payload,
	}
}

// WithCorrelation returns a copy carrying the correlation id.
func (e Envelope) WithCorrelation(id string) Envelope {
	e.CorrelationID = id
	return e
}

// WithMetadata returns a copy carrying the metadata map. Key order is
// irrelevant on the wire.
func (e Envelope) WithMetadata(md map[string]string) Envelope {
	e.Metadata = md
	return e
}

// PaymentProcessedDetail is the payload published for every successful
// payment. Field names keep the upstream contract (Portuguese keys included).
type PaymentProcessedDetail struct {
	Origem        string `json:"origem"`
	Valor         string `json:"valor"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
	PaymentType   string `json:"paymentType"`
}
