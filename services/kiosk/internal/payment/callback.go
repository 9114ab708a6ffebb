package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/kiosk/pkg/enums/paymentstatus"
)

var (
	ErrInvalidCallback = errors.New("invalid payment callback")
	ErrInvalidStatus   = errors.New("invalid payment status")
)

// callbackBody is the card reader network's webhook shape.
type callbackBody struct {
	ID        string           `json:"id"`
	EventType string           `json:"event_type"`
	Payload   *callbackPayload `json:"payload"`
	Timestamp string           `json:"timestamp"`
}

type callbackPayload struct {
	ClientTransactionID string  `json:"client_transaction_id"`
	MerchantCode        string  `json:"merchant_code"`
	Status              string  `json:"status"`
	TransactionID       *string `json:"transaction_id"`
}

// ParsedCallback is a callback that passed validation. Downstream code
// only works with this shape.
type ParsedCallback struct {
	EventID             string
	EventType           string
	ClientTransactionID string
	MerchantCode        string
	Status              string
	TransactionID       string
	// Timestamp is zero when the sender omitted it or it was not RFC 3339.
	// RawTimestamp keeps what was sent.
	Timestamp    time.Time
	RawTimestamp string
}

// TimestampUnparsed reports whether a timestamp was sent but not understood.
func (c ParsedCallback) TimestampUnparsed() bool {
	return c.RawTimestamp != "" && c.Timestamp.IsZero()
}

// ParseCallback validates a raw webhook body without touching storage.
func ParseCallback(body []byte) (ParsedCallback, error) {
	var b callbackBody
	if err := json.Unmarshal(body, &b); err != nil {
		return ParsedCallback{}, fmt.Errorf("%w: body is not JSON", ErrInvalidCallback)
	}
	if b.Payload == nil {
		return ParsedCallback{}, fmt.Errorf("%w: missing payload", ErrInvalidCallback)
	}

	token := strings.TrimSpace(b.Payload.ClientTransactionID)
	if token == "" {
		return ParsedCallback{}, fmt.Errorf("%w: missing client_transaction_id", ErrInvalidCallback)
	}
	status := strings.ToLower(strings.TrimSpace(b.Payload.Status))
	if !paymentstatus.IsResolution(status) {
		return ParsedCallback{}, fmt.Errorf("%w: status %q", ErrInvalidCallback, b.Payload.Status)
	}

	parsed := ParsedCallback{
		EventID:             b.ID,
		EventType:           b.EventType,
		ClientTransactionID: token,
		MerchantCode:        b.Payload.MerchantCode,
		Status:              status,
		RawTimestamp:        b.Timestamp,
	}
	if b.Payload.TransactionID != nil {
		parsed.TransactionID = *b.Payload.TransactionID
	}
	if ts, err := time.Parse(time.RFC3339, b.Timestamp); err == nil {
		parsed.Timestamp = ts
	}
	return parsed, nil
}
