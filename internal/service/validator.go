package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository"
)

// TicketValidator looks up tickets presented at the door.
//
// Validation is read-only. Redemption is not recorded, so the same ticket
// validates successfully every time it is scanned.
type TicketValidator struct {
	store  repository.Store
	logger *slog.Logger
}

// NewTicketValidator constructs a TicketValidator.
func NewTicketValidator(store repository.Store, logger *slog.Logger) *TicketValidator {
	return &TicketValidator{store: store, logger: logger}
}

// Validate finds the booking whose transaction id matches exactly after
// trimming surrounding whitespace. When expectedEventID is non-empty the
// booking must belong to that event.
func (v *TicketValidator) Validate(ctx context.Context, transactionID, expectedEventID string) (*model.ValidatedTicket, error) {
	id := strings.TrimSpace(transactionID)
	if id == "" {
		return nil, fmt.Errorf("%w: transaction id is required", model.ErrInvalidRequest)
	}

	b, err := v.store.GetBookingByTransactionID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			v.logger.Info("ticket not found", "transaction_id", id)
			return nil, fmt.Errorf("%w: %s", model.ErrTicketNotFound, id)
		}
		return nil, storageError(fmt.Errorf("get booking: %w", err))
	}

	expected := strings.TrimSpace(expectedEventID)
	if expected != "" && b.EventID != expected {
		v.logger.Info("ticket event mismatch",
			"transaction_id", id,
			"event_id", b.EventID,
			"expected_event_id", expected,
		)
		return nil, fmt.Errorf("%w: ticket is for event %s", model.ErrEventMismatch, b.EventID)
	}

	v.logger.Info("ticket validated", "transaction_id", id, "event_id", b.EventID)
	return &model.ValidatedTicket{Booking: *b, Contact: model.ContactFromBooking(b)}, nil
}
