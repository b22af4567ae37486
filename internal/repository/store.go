// Package repository implements event and booking persistence.
//
// Three backends satisfy Store: PostgreSQL (pgx), SQLite (zombiezen) and an
// in-memory map. All of them make InEventTx atomic per event, which is what
// keeps concurrent bookings from overselling capacity.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a create would overwrite an existing id.
var ErrDuplicate = errors.New("duplicate id")

// BookingTx is the view of the store available inside InEventTx.
type BookingTx interface {
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListBookings(ctx context.Context, eventID string) ([]model.Booking, error)
	CreateBooking(ctx context.Context, b *model.Booking) error
}

// Store is the persistence boundary used by the service layer.
type Store interface {
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	CreateEvent(ctx context.Context, e *model.Event) error
	UpdateEvent(ctx context.Context, e *model.Event) error

	ListBookings(ctx context.Context, eventID string) ([]model.Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]model.Booking, error)
	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBookingByTransactionID(ctx context.Context, id string) (*model.Booking, error)

	// AddFavorite marks eventID as a favorite of userID. Repeating it is a
	// no-op; an unknown event is ErrNotFound.
	AddFavorite(ctx context.Context, userID, eventID string, at time.Time) error
	// RemoveFavorite is a no-op when the favorite does not exist.
	RemoveFavorite(ctx context.Context, userID, eventID string) error
	// ListFavoriteEvents returns the user's favorite events, most recently
	// favorited first.
	ListFavoriteEvents(ctx context.Context, userID string) ([]model.Event, error)

	// InEventTx runs fn so that no other InEventTx on the same event can
	// interleave between fn's reads and its write. If fn returns an error
	// nothing fn wrote is kept.
	InEventTx(ctx context.Context, eventID string, fn func(tx BookingTx) error) error
}
