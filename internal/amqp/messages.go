package amqp

import (
	"encoding/json"
	"time"
)

const (
	OpCreated = "created"
	OpDeleted = "deleted"
	OpUpdated = "updated"
)

// BalanceChangedMessage announces that a committed unit of work adjusted
// one or more account balances. It carries only identifiers; consumers
// fetch current state from the database, never from the message.
type BalanceChangedMessage struct {
	TransactionID string    `json:"transaction_id"`
	AccountIDs    []string  `json:"account_ids"`
	Op            string    `json:"op"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewBalanceChangedMessage(transactionID string, accountIDs []string, op string) *BalanceChangedMessage {
	return &BalanceChangedMessage{
		TransactionID: transactionID,
		AccountIDs:    accountIDs,
		Op:            op,
		Timestamp:     time.Now(),
	}
}

func (m *BalanceChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BalanceChangedMessageFromJSON(data []byte) (*BalanceChangedMessage, error) {
	var msg BalanceChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
