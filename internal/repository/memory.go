package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

// MemoryStore keeps events and bookings in process memory. It backs tests and
// the "memory" store driver.
type MemoryStore struct {
	mu       sync.RWMutex
	events   map[string]model.Event
	bookings map[string]model.Booking
	byEvent  map[string][]string

	// favorites maps user id to event id to the time it was favorited.
	favorites map[string]map[string]time.Time

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:    make(map[string]model.Event),
		bookings:  make(map[string]model.Booking),
		byEvent:   make(map[string][]string),
		favorites: make(map[string]map[string]time.Time),
		locks:     make(map[string]chan struct{}),
	}
}

// GetEvent returns a copy of the event or ErrNotFound.
func (s *MemoryStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.Normalize()
	return &e, nil
}

// ListEvents returns all events ordered by creation time descending.
func (s *MemoryStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		e.Normalize()
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

// CreateEvent stores a new event. The id must not already exist.
func (s *MemoryStore) CreateEvent(ctx context.Context, e *model.Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; ok {
		return fmt.Errorf("insert event %s: %w", e.ID, ErrDuplicate)
	}
	s.events[e.ID] = *e
	return nil
}

// UpdateEvent replaces an existing event.
func (s *MemoryStore) UpdateEvent(ctx context.Context, e *model.Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; !ok {
		return ErrNotFound
	}
	s.events[e.ID] = *e
	return nil
}

// ListBookings returns every booking for an event in creation order.
func (s *MemoryStore) ListBookings(ctx context.Context, eventID string) ([]model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byEvent[eventID]
	bookings := make([]model.Booking, 0, len(ids))
	for _, id := range ids {
		b := s.bookings[id]
		b.Normalize()
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// ListBookingsByUser returns a user's bookings, newest first.
func (s *MemoryStore) ListBookingsByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bookings []model.Booking
	for _, b := range s.bookings {
		if b.UserID != userID {
			continue
		}
		b.Normalize()
		bookings = append(bookings, b)
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings, nil
}

// CreateBooking inserts a booking. It never overwrites an existing id.
func (s *MemoryStore) CreateBooking(ctx context.Context, b *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[b.ID]; ok {
		return fmt.Errorf("insert booking %s: %w", b.ID, ErrDuplicate)
	}
	s.bookings[b.ID] = *b
	s.byEvent[b.EventID] = append(s.byEvent[b.EventID], b.ID)
	return nil
}

// GetBookingByTransactionID returns the booking with the exact id.
func (s *MemoryStore) GetBookingByTransactionID(ctx context.Context, id string) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	b.Normalize()
	return &b, nil
}

// AddFavorite records a favorite, keeping the first timestamp on repeats.
func (s *MemoryStore) AddFavorite(ctx context.Context, userID, eventID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return ErrNotFound
	}
	favs, ok := s.favorites[userID]
	if !ok {
		favs = make(map[string]time.Time)
		s.favorites[userID] = favs
	}
	if _, ok := favs[eventID]; !ok {
		favs[eventID] = at
	}
	return nil
}

// RemoveFavorite deletes a favorite if present.
func (s *MemoryStore) RemoveFavorite(ctx context.Context, userID, eventID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.favorites[userID], eventID)
	if len(s.favorites[userID]) == 0 {
		delete(s.favorites, userID)
	}
	return nil
}

// ListFavoriteEvents returns a user's favorite events, newest favorite first.
func (s *MemoryStore) ListFavoriteEvents(ctx context.Context, userID string) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	favs := s.favorites[userID]
	ids := make([]string, 0, len(favs))
	for id := range favs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if !favs[ids[i]].Equal(favs[ids[j]]) {
			return favs[ids[i]].After(favs[ids[j]])
		}
		return ids[i] < ids[j]
	})

	events := make([]model.Event, 0, len(ids))
	for _, id := range ids {
		e := s.events[id]
		e.Normalize()
		events = append(events, e)
	}
	return events, nil
}

// InEventTx holds the event's lock for the duration of fn. Waiting for the
// lock honours ctx. Bookings created through tx are buffered and applied only
// if fn succeeds.
func (s *MemoryStore) InEventTx(ctx context.Context, eventID string, fn func(tx BookingTx) error) error {
	lock, err := s.eventLock(eventID)
	if err != nil {
		return fmt.Errorf("lock event %s: %w", eventID, err)
	}
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("lock event %s: %w", eventID, ctx.Err())
	}
	defer func() { <-lock }()

	tx := &memoryTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(tx.pending)
}

func (s *MemoryStore) commit(pending []model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range pending {
		if _, ok := s.bookings[b.ID]; ok {
			return fmt.Errorf("commit booking %s: %w", b.ID, ErrDuplicate)
		}
	}
	for _, b := range pending {
		s.bookings[b.ID] = b
		s.byEvent[b.EventID] = append(s.byEvent[b.EventID], b.ID)
	}
	return nil
}

// memoryTx sees committed state plus its own pending bookings.
type memoryTx struct {
	store   *MemoryStore
	pending []model.Booking
}

func (t *memoryTx) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return t.store.GetEvent(ctx, id)
}

func (t *memoryTx) ListBookings(ctx context.Context, eventID string) ([]model.Booking, error) {
	bookings, err := t.store.ListBookings(ctx, eventID)
	if err != nil {
		return nil, err
	}
	for _, b := range t.pending {
		if b.EventID == eventID {
			bookings = append(bookings, b)
		}
	}
	return bookings, nil
}

func (t *memoryTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	if _, err := t.store.GetBookingByTransactionID(ctx, b.ID); err == nil {
		return fmt.Errorf("insert booking %s: %w", b.ID, ErrDuplicate)
	}
	for _, p := range t.pending {
		if p.ID == b.ID {
			return fmt.Errorf("insert booking %s: %w", b.ID, ErrDuplicate)
		}
	}
	t.pending = append(t.pending, *b)
	return nil
}

// eventLock returns the lock for an existing event. Events are never
// deleted, so the lock table is bounded by the number of events.
func (s *MemoryStore) eventLock(eventID string) (chan struct{}, error) {
	s.mu.RLock()
	_, exists := s.events[eventID]
	s.mu.RUnlock()
	if !exists {
		return nil, ErrNotFound
	}

	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[eventID]
	if !ok {
		lock = make(chan struct{}, 1)
		s.locks[eventID] = lock
	}
	return lock, nil
}
