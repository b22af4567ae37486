package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises behaviour every Store backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("EventRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		e := testEvent("e1", 10)

		require.NoError(t, s.CreateEvent(ctx, &e))
		got, err := s.GetEvent(ctx, "e1")

		require.NoError(t, err)
		assert.Equal(t, e.Name, got.Name)
		assert.Equal(t, e.Capacity, got.Capacity)
		assert.Equal(t, e.PriceCents, got.PriceCents)
		assert.Equal(t, model.CategoryMusic, got.Category)
		assert.True(t, e.StartsAt.Equal(got.StartsAt))
	})

	t.Run("GetEventMissing", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetEvent(context.Background(), "nope")

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("CreateEventDuplicate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		e := testEvent("e1", 10)
		require.NoError(t, s.CreateEvent(ctx, &e))

		err := s.CreateEvent(ctx, &e)

		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("UpdateEvent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		e := testEvent("e1", 10)
		require.NoError(t, s.CreateEvent(ctx, &e))

		e.Name = "Renamed"
		e.Capacity = 25
		require.NoError(t, s.UpdateEvent(ctx, &e))
		got, err := s.GetEvent(ctx, "e1")

		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		assert.Equal(t, 25, got.Capacity)

		missing := testEvent("ghost", 1)
		assert.ErrorIs(t, s.UpdateEvent(ctx, &missing), ErrNotFound)
	})

	t.Run("ListEventsNewestFirst", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		older := testEvent("old", 1)
		newer := testEvent("new", 1)
		newer.CreatedAt = older.CreatedAt.Add(time.Hour)
		require.NoError(t, s.CreateEvent(ctx, &older))
		require.NoError(t, s.CreateEvent(ctx, &newer))

		events, err := s.ListEvents(ctx)

		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "new", events[0].ID)
		assert.Equal(t, "old", events[1].ID)
	})

	t.Run("Bookings", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		e := testEvent("e1", 10)
		require.NoError(t, s.CreateEvent(ctx, &e))

		b1 := testBooking("b1", "e1", "alice", 2)
		b2 := testBooking("b2", "e1", "bob", 3)
		b2.CreatedAt = b1.CreatedAt.Add(time.Minute)
		require.NoError(t, s.CreateBooking(ctx, &b1))
		require.NoError(t, s.CreateBooking(ctx, &b2))

		byEvent, err := s.ListBookings(ctx, "e1")
		require.NoError(t, err)
		require.Len(t, byEvent, 2)
		assert.Equal(t, "b1", byEvent[0].ID)

		byUser, err := s.ListBookingsByUser(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, byUser, 1)
		assert.Equal(t, 3, byUser[0].Quantity)

		got, err := s.GetBookingByTransactionID(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, "alice", got.UserID)
		assert.Equal(t, "Gig", got.EventName)
		assert.Equal(t, int64(200), got.TotalCostCents)

		_, err = s.GetBookingByTransactionID(ctx, "B1")
		assert.ErrorIs(t, err, ErrNotFound, "lookup is case-sensitive")

		assert.ErrorIs(t, s.CreateBooking(ctx, &b1), ErrDuplicate)
	})

	t.Run("InEventTxRollsBackOnError", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		e := testEvent("e1", 10)
		require.NoError(t, s.CreateEvent(ctx, &e))
		boom := errors.New("boom")

		err := s.InEventTx(ctx, "e1", func(tx BookingTx) error {
			b := testBooking("b1", "e1", "alice", 1)
			if err := tx.CreateBooking(ctx, &b); err != nil {
				return err
			}
			return boom
		})

		assert.ErrorIs(t, err, boom)
		bookings, err := s.ListBookings(ctx, "e1")
		require.NoError(t, err)
		assert.Empty(t, bookings)
	})

	t.Run("InEventTxCommits", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		e := testEvent("e1", 10)
		require.NoError(t, s.CreateEvent(ctx, &e))

		err := s.InEventTx(ctx, "e1", func(tx BookingTx) error {
			b := testBooking("b1", "e1", "alice", 1)
			if err := tx.CreateBooking(ctx, &b); err != nil {
				return err
			}
			seen, err := tx.ListBookings(ctx, "e1")
			if err != nil {
				return err
			}
			if len(seen) != 1 {
				return fmt.Errorf("tx sees %d bookings, want 1", len(seen))
			}
			return nil
		})

		require.NoError(t, err)
		got, err := s.GetBookingByTransactionID(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, 1, got.Quantity)
	})

	t.Run("FavoritesNewestFirstAndIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, id := range []string{"e1", "e2"} {
			e := testEvent(id, 10)
			require.NoError(t, s.CreateEvent(ctx, &e))
		}
		at := time.Date(2026, 5, 3, 8, 0, 0, 0, time.UTC)

		require.NoError(t, s.AddFavorite(ctx, "u1", "e1", at))
		require.NoError(t, s.AddFavorite(ctx, "u1", "e2", at.Add(time.Hour)))
		require.NoError(t, s.AddFavorite(ctx, "u1", "e1", at.Add(2*time.Hour)), "repeat is a no-op")
		require.NoError(t, s.AddFavorite(ctx, "u2", "e1", at))

		favs, err := s.ListFavoriteEvents(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, favs, 2)
		assert.Equal(t, "e2", favs[0].ID)
		assert.Equal(t, "e1", favs[1].ID)
		assert.Equal(t, "Gig", favs[1].Name)

		require.NoError(t, s.RemoveFavorite(ctx, "u1", "e2"))
		require.NoError(t, s.RemoveFavorite(ctx, "u1", "e2"), "removing twice is a no-op")

		favs, err = s.ListFavoriteEvents(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, favs, 1)
		assert.Equal(t, "e1", favs[0].ID)

		others, err := s.ListFavoriteEvents(ctx, "u2")
		require.NoError(t, err)
		assert.Len(t, others, 1)
	})

	t.Run("FavoriteUnknownEvent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		err := s.AddFavorite(ctx, "u1", "nope", time.Now())

		assert.ErrorIs(t, err, ErrNotFound)
		favs, err := s.ListFavoriteEvents(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, favs)
	})

	t.Run("InEventTxMissingEvent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		err := s.InEventTx(ctx, "nope", func(tx BookingTx) error {
			_, err := tx.GetEvent(ctx, "nope")
			return err
		})

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("InEventTxSerializesReadThenWrite", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		const capacity = 5
		e := testEvent("e1", capacity)
		require.NoError(t, s.CreateEvent(ctx, &e))

		const attempts = 20
		var wg sync.WaitGroup
		errs := make(chan error, attempts)
		for i := range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.InEventTx(ctx, "e1", func(tx BookingTx) error {
					existing, err := tx.ListBookings(ctx, "e1")
					if err != nil {
						return err
					}
					if len(existing) >= capacity {
						return nil
					}
					// Widen the window between read and write.
					time.Sleep(2 * time.Millisecond)
					b := testBooking(fmt.Sprintf("b%d", i), "e1", "u", 1)
					return tx.CreateBooking(ctx, &b)
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		bookings, err := s.ListBookings(ctx, "e1")
		require.NoError(t, err)
		assert.Len(t, bookings, capacity)
	})
}

func testEvent(id string, capacity int) model.Event {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return model.Event{
		ID:            id,
		Name:          "Gig",
		Description:   "Live music",
		Location:      "Hall A",
		OrganizerID:   "org-1",
		OrganizerName: "Org",
		StartsAt:      now.Add(30 * 24 * time.Hour),
		Category:      model.CategoryMusic,
		Capacity:      capacity,
		PriceCents:    100,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func testBooking(id, eventID, userID string, qty int) model.Booking {
	return model.Booking{
		ID:             id,
		EventID:        eventID,
		UserID:         userID,
		Quantity:       qty,
		TotalCostCents: int64(qty) * 100,
		CreatedAt:      time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
		EventName:      "Gig",
		UserName:       userID,
	}
}
