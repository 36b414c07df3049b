package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType doubles as the routing key.
type EventType string

const (
	EventSnapshotRecorded EventType = "snapshot.recorded"
	EventBillsReset       EventType = "bills.reset"
	EventBillReminder     EventType = "bill.reminder"
)

// Event is the envelope for every message on the exchange.
type Event struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// SnapshotRecorded is published after a history entry is appended.
type SnapshotRecorded struct {
	EntryID          string  `json:"entryId"`
	Date             string  `json:"date"`
	NetWorth         float64 `json:"netWorth"`
	TotalAssets      float64 `json:"totalAssets"`
	TotalLiabilities float64 `json:"totalLiabilities"`
}

// BillsReset is published when every bill is marked unpaid.
type BillsReset struct {
	Month  string `json:"month"` // YYYY-MM
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

const (
	ResetReasonManual   = "manual"
	ResetReasonRollover = "rollover"
)

// BillReminder announces an unpaid bill that is due soon.
type BillReminder struct {
	BillID   string  `json:"billId"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	DueDay   int     `json:"dueDay"`
	DueDate  string  `json:"dueDate"` // YYYY-MM-DD
	DaysLeft int     `json:"daysLeft"`
}

// NewEvent wraps payload in an envelope with a fresh id.
func NewEvent(t EventType, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return &Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(e.Payload, v)
}

// EventFromJSON parses an envelope and checks it carries a type.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Type == "" {
		return nil, errors.New("event without type")
	}
	return &e, nil
}
