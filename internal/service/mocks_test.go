package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository"
	"github.com/stretchr/testify/mock"
)

func newTestLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockStore is a testify mock of repository.Store. InEventTx records the call
// and, unless told to fail, runs fn against the mock itself.
type mockStore struct {
	mock.Mock
}

var _ repository.Store = (*mockStore)(nil)

func (m *mockStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*model.Event)
	return e, args.Error(1)
}

func (m *mockStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	args := m.Called(ctx)
	events, _ := args.Get(0).([]model.Event)
	return events, args.Error(1)
}

func (m *mockStore) CreateEvent(ctx context.Context, e *model.Event) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockStore) UpdateEvent(ctx context.Context, e *model.Event) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockStore) ListBookings(ctx context.Context, eventID string) ([]model.Booking, error) {
	args := m.Called(ctx, eventID)
	bookings, _ := args.Get(0).([]model.Booking)
	return bookings, args.Error(1)
}

func (m *mockStore) ListBookingsByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	args := m.Called(ctx, userID)
	bookings, _ := args.Get(0).([]model.Booking)
	return bookings, args.Error(1)
}

func (m *mockStore) CreateBooking(ctx context.Context, b *model.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockStore) GetBookingByTransactionID(ctx context.Context, id string) (*model.Booking, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*model.Booking)
	return b, args.Error(1)
}

func (m *mockStore) AddFavorite(ctx context.Context, userID, eventID string, at time.Time) error {
	return m.Called(ctx, userID, eventID, at).Error(0)
}

func (m *mockStore) RemoveFavorite(ctx context.Context, userID, eventID string) error {
	return m.Called(ctx, userID, eventID).Error(0)
}

func (m *mockStore) ListFavoriteEvents(ctx context.Context, userID string) ([]model.Event, error) {
	args := m.Called(ctx, userID)
	events, _ := args.Get(0).([]model.Event)
	return events, args.Error(1)
}

func (m *mockStore) InEventTx(ctx context.Context, eventID string, fn func(tx repository.BookingTx) error) error {
	if err := m.Called(ctx, eventID).Error(0); err != nil {
		return err
	}
	return fn(m)
}

// barrier releases its waiters once `parties` goroutines have arrived, or
// after timeout, whichever comes first.
type barrier struct {
	mu      sync.Mutex
	arrived int
	parties int
	ready   chan struct{}
	timeout time.Duration
}

func newBarrier(parties int, timeout time.Duration) *barrier {
	return &barrier{parties: parties, ready: make(chan struct{}), timeout: timeout}
}

func (b *barrier) await() {
	b.mu.Lock()
	b.arrived++
	if b.arrived == b.parties {
		close(b.ready)
	}
	b.mu.Unlock()

	select {
	case <-b.ready:
	case <-time.After(b.timeout):
	}
}

// barrierTx holds every reader between its read and its write until all
// parties have read, which is the interleaving that oversells an
// unprotected read-then-write.
type barrierTx struct {
	repository.BookingTx
	b *barrier
}

func (t barrierTx) ListBookings(ctx context.Context, eventID string) ([]model.Booking, error) {
	bookings, err := t.BookingTx.ListBookings(ctx, eventID)
	t.b.await()
	return bookings, err
}

// barrierStore injects the barrier into a real store's transactions.
type barrierStore struct {
	repository.Store
	b *barrier
}

func (s *barrierStore) InEventTx(ctx context.Context, eventID string, fn func(tx repository.BookingTx) error) error {
	return s.Store.InEventTx(ctx, eventID, func(tx repository.BookingTx) error {
		return fn(barrierTx{BookingTx: tx, b: s.b})
	})
}

// unserializedStore runs fn straight against the memory store with no lock,
// reproducing a backend without transactions.
type unserializedStore struct {
	*repository.MemoryStore
	b *barrier
}

func (s *unserializedStore) InEventTx(ctx context.Context, eventID string, fn func(tx repository.BookingTx) error) error {
	return fn(barrierTx{BookingTx: s.MemoryStore, b: s.b})
}

// recordingPublisher captures published bookings.
type recordingPublisher struct {
	mu        sync.Mutex
	published []model.Booking
	err       error
}

func (p *recordingPublisher) PublishBookingCommitted(ctx context.Context, b model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, b)
	return p.err
}

func (p *recordingPublisher) bookings() []model.Booking {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Booking(nil), p.published...)
}
