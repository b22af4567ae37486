// Package model defines the core domain types for the event ticketing system.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Placeholders substituted for missing fields at the decoding boundary.
const (
	UnknownEventName = "Unknown Event"
	AnonymousUser    = "Anonymous"
	NotProvided      = "Not provided"
)

// Category tags an event for browsing.
type Category string

const (
	CategoryMusic      Category = "music"
	CategoryGatherings Category = "gatherings"
	CategoryArt        Category = "art"
	CategoryComedy     Category = "comedy"
	CategoryOther      Category = "other"
)

// ParseCategory maps free-form input onto a known category, falling back to
// CategoryOther.
func ParseCategory(s string) Category {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryMusic, CategoryGatherings, CategoryArt, CategoryComedy:
		return c
	default:
		return CategoryOther
	}
}

// LookupCategory is the strict form of ParseCategory: it reports false for
// anything that is not one of the known categories.
func LookupCategory(s string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryMusic, CategoryGatherings, CategoryArt, CategoryComedy, CategoryOther:
		return c, true
	default:
		return "", false
	}
}

// Event represents a ticketed event listed by an organizer.
// Capacity is the authoritative ceiling; remaining tickets are always derived
// from the bookings that reference the event.
type Event struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Location      string    `json:"location"`
	OrganizerID   string    `json:"organizer_id"`
	OrganizerName string    `json:"organizer_name"`
	StartsAt      time.Time `json:"starts_at"`
	Category      Category  `json:"category"`
	Capacity      int       `json:"capacity"`
	PriceCents    int64     `json:"price_cents"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Normalize applies the schema defaults. Every store calls it on the way out.
func (e *Event) Normalize() {
	if strings.TrimSpace(e.Name) == "" {
		e.Name = UnknownEventName
	}
	if e.Capacity < 0 {
		e.Capacity = 0
	}
	if e.PriceCents < 0 {
		e.PriceCents = 0
	}
	e.Category = ParseCategory(string(e.Category))
}

// UnmarshalJSON decodes an event document and applies defaults.
func (e *Event) UnmarshalJSON(data []byte) error {
	type raw Event
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*e = Event(r)
	e.Normalize()
	return nil
}

// Snapshot captures the display fields needed after a commit.
func (e *Event) Snapshot() EventSnapshot {
	return EventSnapshot{ID: e.ID, Name: e.Name, PriceCents: e.PriceCents}
}

// EventSnapshot is the subset of an event frozen into a booking outcome.
type EventSnapshot struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

// Booking is a persisted purchase of Quantity tickets for one event.
// Bookings are immutable once created.
type Booking struct {
	ID             string    `json:"transaction_id"`
	EventID        string    `json:"event_id"`
	UserID         string    `json:"user_id"`
	Quantity       int       `json:"quantity"`
	TotalCostCents int64     `json:"total_cost_cents"`
	CreatedAt      time.Time `json:"created_at"`

	// Denormalized at commit time so the ticket can be validated and
	// displayed without further lookups.
	EventName  string `json:"event_name"`
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	UserMobile string `json:"user_mobile"`
}

// Normalize applies the schema defaults. Quantity is left untouched: a
// non-positive quantity is malformed data and is reported where it is summed.
func (b *Booking) Normalize() {
	if strings.TrimSpace(b.EventName) == "" {
		b.EventName = UnknownEventName
	}
	if b.TotalCostCents < 0 {
		b.TotalCostCents = 0
	}
}

// UnmarshalJSON decodes a booking document and applies defaults.
func (b *Booking) UnmarshalJSON(data []byte) error {
	type raw Booking
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*b = Booking(r)
	b.Normalize()
	return nil
}

// UserSnapshot carries the acting user's display and contact fields.
type UserSnapshot struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}

// Contact is the organizer-facing view of a ticket holder.
type Contact struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}

// ContactFromBooking returns the denormalized holder contact with
// placeholders for missing fields.
func ContactFromBooking(b *Booking) Contact {
	return Contact{
		Name:   orDefault(b.UserName, AnonymousUser),
		Email:  orDefault(b.UserEmail, NotProvided),
		Mobile: orDefault(b.UserMobile, NotProvided),
	}
}

// ValidatedTicket is the result of a successful ticket validation.
type ValidatedTicket struct {
	Booking Booking `json:"booking"`
	Contact Contact `json:"contact"`
}

// TicketPayload is the JSON document encoded into the scannable code.
type TicketPayload struct {
	TransactionID string `json:"transactionId"`
	EventName     string `json:"eventName"`
	UserName      string `json:"userName"`
}

// Confirmation is the user-facing summary of a committed booking.
type Confirmation struct {
	TransactionID  string `json:"transaction_id"`
	DisplayID      string `json:"display_id"`
	EventName      string `json:"event_name"`
	Quantity       int    `json:"quantity"`
	TotalCostCents int64  `json:"total_cost_cents"`
	Payload        string `json:"payload"`
}

// EventView is an event together with its derived inventory.
type EventView struct {
	Event
	Sold      int `json:"sold"`
	Available int `json:"available"`
}

// ─── Requests ────────────────────────────────────────────────────────────────

// CreateEventRequest is the payload for listing a new event.
type CreateEventRequest struct {
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Location      string    `json:"location"`
	OrganizerName string    `json:"organizer_name"`
	StartsAt      time.Time `json:"starts_at"`
	Category      string    `json:"category"`
	Capacity      int       `json:"capacity"`
	PriceCents    int64     `json:"price_cents"`
}

// EventFilter narrows an event listing. Empty fields match everything; set
// fields must all match.
type EventFilter struct {
	// Query matches a case-insensitive substring of the event name.
	Query       string
	OrganizerID string
	Category    Category
}

// UpdateEventRequest is a partial modification; nil fields are left as is.
type UpdateEventRequest struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Capacity    *int       `json:"capacity,omitempty"`
	PriceCents  *int64     `json:"price_cents,omitempty"`
}

// BookingRequest is a single booking attempt.
type BookingRequest struct {
	EventID  string
	Quantity int
	User     UserSnapshot
}

// CreateBookingRequest is the HTTP payload for a booking attempt.
type CreateBookingRequest struct {
	Quantity int `json:"quantity"`
}

// ValidateTicketRequest is the HTTP payload for ticket validation.
type ValidateTicketRequest struct {
	TransactionID string `json:"transaction_id"`
	EventID       string `json:"event_id,omitempty"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error     string `json:"error"`
	Available *int   `json:"available,omitempty"`
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
