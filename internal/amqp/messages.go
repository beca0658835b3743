package amqp

import (
	"encoding/json"
	"time"
)

// TransactionRecordedMessage announces a committed ledger insert. It carries
// only identifiers and the already-derived figures; consumers fetch the full
// record from storage when they need more.
type TransactionRecordedMessage struct {
	UserID        string    `json:"userId"`
	TransactionID string    `json:"transactionId"`
	Type          string    `json:"type"`
	AmountCents   int64     `json:"amountCents"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionRecordedMessage(userID, transactionID, txType string, amountCents int64) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		UserID:        userID,
		TransactionID: transactionID,
		Type:          txType,
		AmountCents:   amountCents,
		Timestamp:     time.Now(),
	}
}

func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
