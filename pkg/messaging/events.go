package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event subjects
const (
	SubjectSpenderChanged      = "vault.spender.changed"
	SubjectPaymentAuthorized   = "vault.payment.authorized"
	SubjectPaymentCollected    = "vault.payment.collected"
	SubjectPaymentCanceled     = "vault.payment.canceled"
	SubjectPaymentDelayed      = "vault.payment.delayed"
	SubjectValueReceived       = "vault.value.received"
	SubjectEscapeInvoked       = "vault.escape.invoked"
	SubjectEscapeCallerChanged = "vault.escape.caller_changed"
	SubjectOwnerChanged        = "vault.owner.changed"
	SubjectConfigChanged       = "vault.config.changed"
)

// Event is the envelope every vault event is published in.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Subject   string          `json:"subject"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// SpenderChangedEvent records an authorization flip in the spender registry.
type SpenderChangedEvent struct {
	Principal  string `json:"principal"`
	Authorized bool   `json:"authorized"`
}

// PaymentAuthorizedEvent records a newly created pending payment.
type PaymentAuthorizedEvent struct {
	Index           int       `json:"index"`
	Name            string    `json:"name"`
	Reference       uuid.UUID `json:"reference"`
	Spender         string    `json:"spender"`
	Recipient       string    `json:"recipient"`
	Amount          string    `json:"amount"`
	EarliestPayTime uint64    `json:"earliest_pay_time"`
}

// PaymentCollectedEvent records a successful collection.
type PaymentCollectedEvent struct {
	Index     int    `json:"index"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// PaymentCanceledEvent records an owner cancellation.
type PaymentCanceledEvent struct {
	Index int `json:"index"`
}

// PaymentDelayedEvent records a security-guard delay extension.
type PaymentDelayedEvent struct {
	Index           int    `json:"index"`
	ExtraDelay      uint64 `json:"extra_delay"`
	EarliestPayTime uint64 `json:"earliest_pay_time"`
}

// ValueReceivedEvent records an inbound deposit.
type ValueReceivedEvent struct {
	From    string `json:"from"`
	Amount  string `json:"amount"`
	Balance string `json:"balance"`
}

// EscapeInvokedEvent records an escape-hatch drain.
type EscapeInvokedEvent struct {
	Caller      string `json:"caller"`
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
}

// EscapeCallerChangedEvent records reassignment of the escape-hatch caller.
type EscapeCallerChangedEvent struct {
	Previous string `json:"previous"`
	Next     string `json:"next"`
}

// OwnerChangedEvent records an ownership transfer.
type OwnerChangedEvent struct {
	Previous string `json:"previous"`
	Next     string `json:"next"`
}

// ConfigChangedEvent records an owner mutation of a vault parameter.
type ConfigChangedEvent struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// NewEvent wraps a payload in an Event envelope.
func NewEvent(subject string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        uuid.New(),
		Subject:   subject,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// ParseEventData decodes an event payload into the given type.
func ParseEventData[T any](evt Event) (*T, error) {
	var data T
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Publisher delivers vault events to an audit sink.
type Publisher interface {
	Publish(evt Event) error
}
