package service

import (
	"log/slog"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

// ComputeAvailable returns max(capacity - sum(quantities), 0).
//
// Quantities below 1 can only come from malformed records; they are left out
// of the sum and reported as a data-integrity warning. An oversold event
// reports zero, never a negative count.
func ComputeAvailable(capacity int, quantities []int, logger *slog.Logger) int {
	_, available := tally(capacity, quantities, logger)
	return available
}

func tally(capacity int, quantities []int, logger *slog.Logger) (sold, available int) {
	for i, q := range quantities {
		if q < 1 {
			if logger != nil {
				logger.Warn("malformed booking quantity excluded from availability",
					"index", i,
					"quantity", q,
				)
			}
			continue
		}
		sold += q
	}
	return sold, max(capacity-sold, 0)
}

func quantitiesOf(bookings []model.Booking) []int {
	qs := make([]int, len(bookings))
	for i := range bookings {
		qs[i] = bookings[i].Quantity
	}
	return qs
}

// viewOf pairs an event with its derived inventory.
func viewOf(e model.Event, bookings []model.Booking, logger *slog.Logger) model.EventView {
	sold, available := tally(e.Capacity, quantitiesOf(bookings), logger)
	return model.EventView{Event: e, Sold: sold, Available: available}
}
