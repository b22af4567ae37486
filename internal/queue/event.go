// Package queue publishes booking notifications to RabbitMQ.
package queue

import (
	"encoding/json"
	"time"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

// BookingCommittedEvent is the message body sent once per committed booking.
type BookingCommittedEvent struct {
	TransactionID  string    `json:"transaction_id"`
	EventID        string    `json:"event_id"`
	EventName      string    `json:"event_name"`
	UserID         string    `json:"user_id"`
	UserName       string    `json:"user_name"`
	Quantity       int       `json:"quantity"`
	TotalCostCents int64     `json:"total_cost_cents"`
	CreatedAt      time.Time `json:"created_at"`
}

func newBookingCommittedEvent(b model.Booking) BookingCommittedEvent {
	b.Normalize()
	if b.UserName == "" {
		b.UserName = model.AnonymousUser
	}
	return BookingCommittedEvent{
		TransactionID:  b.ID,
		EventID:        b.EventID,
		EventName:      b.EventName,
		UserID:         b.UserID,
		UserName:       b.UserName,
		Quantity:       b.Quantity,
		TotalCostCents: b.TotalCostCents,
		CreatedAt:      b.CreatedAt.UTC(),
	}
}

func (e BookingCommittedEvent) encode() ([]byte, error) {
	return json.Marshal(e)
}
