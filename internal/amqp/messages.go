package amqp

import (
	"encoding/json"
	"time"
)

// TransactionEvent is the lightweight message emitted after a ledger
// mutation commits. Consumers fetch the full record from storage by ID,
// so the event only carries what a notification needs to be routed.
type TransactionEvent struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amountCents"`
	Category    string    `json:"category"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewTransactionEvent creates an event for a committed transaction.
func NewTransactionEvent(id, ownerID, kind string, amountCents int64, category string) *TransactionEvent {
	return &TransactionEvent{
		ID:          id,
		OwnerID:     ownerID,
		Kind:        kind,
		AmountCents: amountCents,
		Category:    category,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON creates an event from JSON bytes.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
