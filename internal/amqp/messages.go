package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"skledger/internal/core"
)

// PeriodSavedMessage tells the export worker a period was saved. It only
// carries the key; the worker loads the period itself.
type PeriodSavedMessage struct {
	ID        uuid.UUID `json:"id"`
	PeriodKey string    `json:"period_key"`
	SavedAt   time.Time `json:"saved_at"`
}

func NewPeriodSavedMessage(key core.PeriodKey) *PeriodSavedMessage {
	return &PeriodSavedMessage{
		ID:        uuid.New(),
		PeriodKey: key.String(),
		SavedAt:   time.Now(),
	}
}

// Key parses the message's period key.
func (m *PeriodSavedMessage) Key() (core.PeriodKey, error) {
	return core.ParsePeriodKey(m.PeriodKey)
}

// ToJSON converts the message to JSON bytes
func (m *PeriodSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PeriodSavedMessageFromJSON decodes and validates a message body.
func PeriodSavedMessageFromJSON(data []byte) (*PeriodSavedMessage, error) {
	var msg PeriodSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil {
		return nil, errors.New("message id is required")
	}
	if _, err := msg.Key(); err != nil {
		return nil, err
	}
	return &msg, nil
}
