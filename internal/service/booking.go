package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository"
	"github.com/google/uuid"
)

// BookingState is the position of a booking attempt in its lifecycle:
// Requested -> Validating -> Committed | Rejected.
type BookingState int

const (
	StateRequested BookingState = iota
	StateValidating
	StateCommitted
	StateRejected
)

func (s BookingState) String() string {
	switch s {
	case StateRequested:
		return "requested"
	case StateValidating:
		return "validating"
	case StateCommitted:
		return "committed"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("BookingState(%d)", int(s))
	}
}

// BookingResult describes where an attempt ended.
//
// On commit Booking and Event are set and Available is what is left after
// this booking. On an inventory rejection Available is what was left when
// the request was turned down.
type BookingResult struct {
	State     BookingState
	Booking   *model.Booking
	Event     model.EventSnapshot
	Available int
}

// BookingPublisher is notified after a booking commits.
type BookingPublisher interface {
	PublishBookingCommitted(ctx context.Context, b model.Booking) error
}

const publishTimeout = 5 * time.Second

// CommitterConfig bounds the read and write legs of an attempt.
type CommitterConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// CommitterOption customizes a BookingCommitter.
type CommitterOption func(*BookingCommitter)

// WithPublisher sends committed bookings to p. Publishing is best-effort and
// never changes the outcome of an attempt.
func WithPublisher(p BookingPublisher) CommitterOption {
	return func(c *BookingCommitter) { c.publisher = p }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) CommitterOption {
	return func(c *BookingCommitter) { c.now = now }
}

// WithIDGenerator overrides transaction id generation.
func WithIDGenerator(newID func() string) CommitterOption {
	return func(c *BookingCommitter) { c.newID = newID }
}

// BookingCommitter validates a booking request against freshly read inventory
// and persists it. The read and the write run inside one Store.InEventTx so
// concurrent attempts on an event cannot both spend the same tickets.
type BookingCommitter struct {
	store        repository.Store
	publisher    BookingPublisher
	logger       *slog.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration
	now          func() time.Time
	newID        func() string

	inflight sync.WaitGroup
}

// NewBookingCommitter constructs a BookingCommitter.
func NewBookingCommitter(store repository.Store, cfg CommitterConfig, logger *slog.Logger, opts ...CommitterOption) *BookingCommitter {
	c := &BookingCommitter{
		store:        store,
		logger:       logger,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attempt runs one booking attempt to completion.
//
// Errors match, via errors.Is:
//   - model.ErrInvalidRequest before any store access, or when the total
//     cost would overflow;
//   - model.ErrEventNotFound;
//   - model.ErrInsufficientInventory (an *model.InsufficientInventoryError);
//   - model.ErrTimeout when a leg exceeds its deadline;
//   - model.ErrStorageFailure for anything else the store reports.
//
// No write happens unless the result is StateCommitted.
func (c *BookingCommitter) Attempt(ctx context.Context, req model.BookingRequest) (BookingResult, error) {
	res := BookingResult{State: StateRequested}
	log := c.logger.With("event_id", req.EventID, "user_id", req.User.ID, "quantity", req.Quantity)

	if err := validateBookingRequest(req); err != nil {
		res.State = StateRejected
		log.Info("booking rejected", "reason", err)
		return res, err
	}

	res.State = StateValidating
	log.Debug("booking validating")

	txCtx, cancel := context.WithTimeout(ctx, c.readTimeout+c.writeTimeout)
	defer cancel()

	var (
		booking  *model.Booking
		snapshot model.EventSnapshot
	)
	err := c.store.InEventTx(txCtx, req.EventID, func(tx repository.BookingTx) error {
		event, bookings, err := c.read(txCtx, tx, req.EventID)
		if err != nil {
			return err
		}

		available := ComputeAvailable(event.Capacity, quantitiesOf(bookings), log)
		res.Available = available
		if available < req.Quantity {
			return &model.InsufficientInventoryError{Available: available, Requested: req.Quantity}
		}

		if event.PriceCents > 0 && int64(req.Quantity) > math.MaxInt64/event.PriceCents {
			return fmt.Errorf("%w: total cost of %d tickets at %d cents overflows",
				model.ErrInvalidRequest, req.Quantity, event.PriceCents)
		}

		b := c.newBooking(event, req)
		writeCtx, cancel := context.WithTimeout(txCtx, c.writeTimeout)
		defer cancel()
		if err := tx.CreateBooking(writeCtx, b); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		booking = b
		snapshot = event.Snapshot()
		res.Available = available - req.Quantity
		return nil
	})
	if err != nil {
		err = classify(err)
		res.State = StateRejected
		if errors.Is(err, model.ErrInsufficientInventory) || errors.Is(err, model.ErrEventNotFound) ||
			errors.Is(err, model.ErrInvalidRequest) {
			log.Info("booking rejected", "reason", err, "available", res.Available)
		} else {
			log.Error("booking failed", "error", err)
		}
		return res, err
	}

	res.State = StateCommitted
	res.Booking = booking
	res.Event = snapshot
	log.Info("booking committed",
		"transaction_id", booking.ID,
		"total_cost_cents", booking.TotalCostCents,
		"available", res.Available,
	)

	c.publish(*booking)
	return res, nil
}

// Wait blocks until in-flight publications finish.
func (c *BookingCommitter) Wait() {
	c.inflight.Wait()
}

func (c *BookingCommitter) read(ctx context.Context, tx repository.BookingTx, eventID string) (*model.Event, []model.Booking, error) {
	readCtx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	event, err := tx.GetEvent(readCtx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", model.ErrEventNotFound, eventID)
		}
		return nil, nil, fmt.Errorf("read event: %w", err)
	}

	bookings, err := tx.ListBookings(readCtx, eventID)
	if err != nil {
		return nil, nil, fmt.Errorf("read bookings: %w", err)
	}
	return event, bookings, nil
}

func (c *BookingCommitter) newBooking(event *model.Event, req model.BookingRequest) *model.Booking {
	return &model.Booking{
		ID:             c.newID(),
		EventID:        event.ID,
		UserID:         req.User.ID,
		Quantity:       req.Quantity,
		TotalCostCents: int64(req.Quantity) * event.PriceCents,
		CreatedAt:      c.now().UTC(),
		EventName:      event.Name,
		UserName:       req.User.Name,
		UserEmail:      req.User.Email,
		UserMobile:     req.User.Mobile,
	}
}

func (c *BookingCommitter) publish(b model.Booking) {
	if c.publisher == nil {
		return
	}
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := c.publisher.PublishBookingCommitted(ctx, b); err != nil {
			c.logger.Warn("publish booking committed failed", "transaction_id", b.ID, "error", err)
		}
	}()
}

func validateBookingRequest(req model.BookingRequest) error {
	switch {
	case req.Quantity < 1:
		return fmt.Errorf("%w: quantity must be at least 1, got %d", model.ErrInvalidRequest, req.Quantity)
	case strings.TrimSpace(req.User.ID) == "":
		return fmt.Errorf("%w: user id is required", model.ErrInvalidRequest)
	case strings.TrimSpace(req.EventID) == "":
		return fmt.Errorf("%w: event id is required", model.ErrInvalidRequest)
	}
	return nil
}

// classify maps whatever came out of the transaction onto the outcome
// taxonomy, keeping the underlying error in the chain.
func classify(err error) error {
	switch {
	case errors.Is(err, model.ErrInsufficientInventory),
		errors.Is(err, model.ErrEventNotFound),
		errors.Is(err, model.ErrInvalidRequest):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %w", model.ErrEventNotFound, err)
	default:
		return storageError(err)
	}
}

// storageError reports a store failure as a timeout when a deadline expired
// and as a storage failure otherwise. Caller cancellation passes through.
func storageError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", model.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", model.ErrStorageFailure, err)
	}
}
