package amqp

import (
	"encoding/json"
	"time"

	"lifeledger/internal/core"
)

const (
	// KindMonthClosed and KindMonthReverted route messages to handlers.
	KindMonthClosed   = "month_closed"
	KindMonthReverted = "month_reverted"
)

// Envelope wraps every published message with a kind tag so one queue can
// carry both event types.
type Envelope struct {
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// MonthClosedMessage carries the full monthly savings record of a closed
// month so consumers can build reports without reading ledger storage.
type MonthClosedMessage struct {
	Record core.MonthlySavingsRecord `json:"record"`
}

// MonthRevertedMessage announces that the most recent close was undone;
// consumers drop any derived data for that month.
type MonthRevertedMessage struct {
	Month core.Month `json:"month"`
}

// NewEnvelope wraps a payload under a kind tag.
func NewEnvelope(kind string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   raw,
	}, nil
}

// ToJSON converts the envelope to JSON bytes.
func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EnvelopeFromJSON decodes an envelope from JSON bytes.
func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// MonthClosed decodes the payload of a month_closed envelope.
func (e *Envelope) MonthClosed() (*MonthClosedMessage, error) {
	var msg MonthClosedMessage
	if err := json.Unmarshal(e.Payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MonthReverted decodes the payload of a month_reverted envelope.
func (e *Envelope) MonthReverted() (*MonthRevertedMessage, error) {
	var msg MonthRevertedMessage
	if err := json.Unmarshal(e.Payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
