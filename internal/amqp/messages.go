package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"budget/internal/core"
)

// EventExpenseAdded is the message type header for ExpenseAddedMessage.
const EventExpenseAdded = "expense.added"

// ExpenseAddedMessage announces a newly stored expense.
type ExpenseAddedMessage struct {
	EventID   string         `json:"event_id"`
	ID        int64          `json:"id"`
	Amount    core.Amount    `json:"amount"`
	Category  string         `json:"category"`
	Note      string         `json:"note"`
	Date      core.Timestamp `json:"date"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewExpenseAddedMessage builds a message for e with a fresh event id.
func NewExpenseAddedMessage(e core.Expense) *ExpenseAddedMessage {
	return &ExpenseAddedMessage{
		EventID:   uuid.NewString(),
		ID:        e.ID,
		Amount:    e.Amount,
		Category:  e.Category,
		Note:      e.Note,
		Date:      e.Date,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseAddedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseAddedMessageFromJSON decodes a message body.
func ExpenseAddedMessageFromJSON(data []byte) (*ExpenseAddedMessage, error) {
	var msg ExpenseAddedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
