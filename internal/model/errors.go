package model

import (
	"errors"
	"fmt"
)

// Booking and validation outcomes. Callers distinguish them with errors.Is.
var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrEventNotFound         = errors.New("event not found")
	ErrInsufficientInventory = errors.New("not enough tickets available")
	ErrStorageFailure        = errors.New("storage failure")
	ErrTimeout               = errors.New("operation timed out")
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrEventMismatch         = errors.New("ticket belongs to a different event")
	ErrForbidden             = errors.New("forbidden")
)

// InsufficientInventoryError reports how many tickets were left when a
// booking was rejected.
type InsufficientInventoryError struct {
	Available int
	Requested int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("%s: requested %d, available %d", ErrInsufficientInventory, e.Requested, e.Available)
}

// Is reports ErrInsufficientInventory as a match.
func (e *InsufficientInventoryError) Is(target error) bool {
	return target == ErrInsufficientInventory
}

// AvailableFrom extracts the available count carried by an inventory
// rejection.
func AvailableFrom(err error) (int, bool) {
	var inv *InsufficientInventoryError
	if errors.As(err, &inv) {
		return inv.Available, true
	}
	return 0, false
}
