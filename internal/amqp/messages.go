package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"earntracker/internal/period"
)

// PeriodChangedMessage announces that the income or tax rules of one user's
// quarter changed. The worker reloads everything else from the database.
type PeriodChangedMessage struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Year      int       `json:"year"`
	Quarter   int       `json:"quarter"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPeriodChangedMessage(userID int64, p period.Period, reason string) *PeriodChangedMessage {
	return &PeriodChangedMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Year:      p.Year,
		Quarter:   p.Quarter,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

// Period returns the quarter the message refers to.
func (m *PeriodChangedMessage) Period() period.Period {
	return period.Period{Year: m.Year, Quarter: m.Quarter}
}

func (m *PeriodChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PeriodChangedMessageFromJSON decodes and validates a message body.
func PeriodChangedMessageFromJSON(data []byte) (*PeriodChangedMessage, error) {
	var msg PeriodChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID <= 0 {
		return nil, fmt.Errorf("message %s: missing user id", msg.ID)
	}
	if err := msg.Period().Validate(); err != nil {
		return nil, fmt.Errorf("message %s: %w", msg.ID, err)
	}
	return &msg, nil
}
