package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidMessage marks payloads that can never be processed.
var ErrInvalidMessage = errors.New("invalid ledger changed message")

// LedgerChangedMessage announces that an organization's ledger received a
// new entry. It carries only identifiers; consumers re-read the ledger.
type LedgerChangedMessage struct {
	MessageID      string    `json:"messageId"`
	OrganizationID string    `json:"organizationId"`
	TransactionID  string    `json:"transactionId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(orgID, txID string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		MessageID:      uuid.NewString(),
		OrganizationID: orgID,
		TransactionID:  txID,
		Timestamp:      time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes and validates a message body.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errors.Join(ErrInvalidMessage, err)
	}
	if msg.OrganizationID == "" {
		return nil, errors.Join(ErrInvalidMessage, errors.New("missing organizationId"))
	}
	return &msg, nil
}
