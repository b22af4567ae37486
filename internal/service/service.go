// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository"
	"github.com/google/uuid"
)

const (
	maxCapacity = 100_000
	// maxPriceCents keeps maxCapacity * maxPriceCents well inside int64.
	maxPriceCents int64 = 100_000_000
)

// EventService handles the organizer-facing event catalogue and the
// booking listings built on top of it.
type EventService struct {
	store  repository.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(store repository.Store, logger *slog.Logger) *EventService {
	return &EventService{store: store, logger: logger, now: time.Now}
}

// CreateEvent validates the request and lists a new event owned by organizer.
func (s *EventService) CreateEvent(ctx context.Context, organizer model.UserSnapshot, req model.CreateEventRequest) (*model.Event, error) {
	if strings.TrimSpace(organizer.ID) == "" {
		return nil, fmt.Errorf("%w: organizer id is required", model.ErrInvalidRequest)
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Location = strings.TrimSpace(req.Location)
	req.OrganizerName = strings.TrimSpace(req.OrganizerName)
	if req.OrganizerName == "" {
		req.OrganizerName = strings.TrimSpace(organizer.Name)
	}

	switch {
	case req.Name == "":
		return nil, fmt.Errorf("%w: event name is required", model.ErrInvalidRequest)
	case req.Description == "":
		return nil, fmt.Errorf("%w: description is required", model.ErrInvalidRequest)
	case req.Location == "":
		return nil, fmt.Errorf("%w: location is required", model.ErrInvalidRequest)
	case req.OrganizerName == "":
		return nil, fmt.Errorf("%w: organizer name is required", model.ErrInvalidRequest)
	case req.StartsAt.IsZero():
		return nil, fmt.Errorf("%w: start time is required", model.ErrInvalidRequest)
	}
	if err := validateInventory(req.Capacity, req.PriceCents); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	event := &model.Event{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Description:   req.Description,
		Location:      req.Location,
		OrganizerID:   organizer.ID,
		OrganizerName: req.OrganizerName,
		StartsAt:      req.StartsAt.UTC(),
		Category:      model.ParseCategory(req.Category),
		Capacity:      req.Capacity,
		PriceCents:    req.PriceCents,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, storageError(fmt.Errorf("create event: %w", err))
	}

	s.logger.Info("event created", "event_id", event.ID, "organizer_id", organizer.ID, "capacity", event.Capacity)
	return event, nil
}

// UpdateEvent applies a partial modification. Only the organizer who listed
// the event may change it.
func (s *EventService) UpdateEvent(ctx context.Context, organizerID, eventID string, req model.UpdateEventRequest) (*model.Event, error) {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != organizerID {
		return nil, fmt.Errorf("%w: event %s belongs to another organizer", model.ErrForbidden, eventID)
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("%w: event name cannot be empty", model.ErrInvalidRequest)
		}
		event.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		event.Description = strings.TrimSpace(*req.Description)
	}
	if req.Location != nil {
		event.Location = strings.TrimSpace(*req.Location)
	}
	if req.StartsAt != nil {
		if req.StartsAt.IsZero() {
			return nil, fmt.Errorf("%w: start time cannot be empty", model.ErrInvalidRequest)
		}
		event.StartsAt = req.StartsAt.UTC()
	}
	if req.Category != nil {
		event.Category = model.ParseCategory(*req.Category)
	}
	if req.Capacity != nil {
		event.Capacity = *req.Capacity
	}
	if req.PriceCents != nil {
		event.PriceCents = *req.PriceCents
	}
	if err := validateInventory(event.Capacity, event.PriceCents); err != nil {
		return nil, err
	}
	event.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateEvent(ctx, event); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrEventNotFound, eventID)
		}
		return nil, storageError(fmt.Errorf("update event: %w", err))
	}

	if req.Capacity != nil {
		if bookings, err := s.store.ListBookings(ctx, eventID); err == nil {
			if view := viewOf(*event, bookings, s.logger); view.Sold > event.Capacity {
				s.logger.Warn("capacity reduced below tickets sold",
					"event_id", eventID,
					"capacity", event.Capacity,
					"sold", view.Sold,
				)
			}
		}
	}

	s.logger.Info("event updated", "event_id", eventID)
	return event, nil
}

// GetEvent returns an event with its current inventory.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.EventView, error) {
	event, err := s.getEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	view, err := s.view(ctx, *event)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListEvents returns the events matching every set field of filter.
func (s *EventService) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.EventView, error) {
	needle := strings.ToLower(strings.TrimSpace(filter.Query))
	return s.listViews(ctx, func(e *model.Event) bool {
		switch {
		case filter.OrganizerID != "" && e.OrganizerID != filter.OrganizerID:
			return false
		case filter.Category != "" && e.Category != filter.Category:
			return false
		case needle != "" && !strings.Contains(strings.ToLower(e.Name), needle):
			return false
		}
		return true
	})
}

// SearchEvents returns events whose name contains query, ignoring case.
func (s *EventService) SearchEvents(ctx context.Context, query string) ([]model.EventView, error) {
	return s.ListEvents(ctx, model.EventFilter{Query: query})
}

// ListByCategory returns the events tagged with category. Unlike event
// creation, an unknown category is rejected rather than mapped to "other".
func (s *EventService) ListByCategory(ctx context.Context, category string) ([]model.EventView, error) {
	c, ok := model.LookupCategory(category)
	if !ok {
		return nil, fmt.Errorf("%w: unknown category %q", model.ErrInvalidRequest, category)
	}
	return s.ListEvents(ctx, model.EventFilter{Category: c})
}

// AddFavorite marks an event as a favorite of userID. Favoriting the same
// event twice is not an error.
func (s *EventService) AddFavorite(ctx context.Context, userID, eventID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", model.ErrInvalidRequest)
	}
	if strings.TrimSpace(eventID) == "" {
		return fmt.Errorf("%w: event id is required", model.ErrInvalidRequest)
	}
	if err := s.store.AddFavorite(ctx, userID, eventID, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", model.ErrEventNotFound, eventID)
		}
		return storageError(fmt.Errorf("add favorite: %w", err))
	}
	s.logger.Debug("favorite added", "user_id", userID, "event_id", eventID)
	return nil
}

// RemoveFavorite unmarks an event. Removing a favorite that does not exist
// is not an error.
func (s *EventService) RemoveFavorite(ctx context.Context, userID, eventID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", model.ErrInvalidRequest)
	}
	if err := s.store.RemoveFavorite(ctx, userID, eventID); err != nil {
		return storageError(fmt.Errorf("remove favorite: %w", err))
	}
	s.logger.Debug("favorite removed", "user_id", userID, "event_id", eventID)
	return nil
}

// ListFavorites returns the user's favorite events with current inventory,
// most recently favorited first.
func (s *EventService) ListFavorites(ctx context.Context, userID string) ([]model.EventView, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrInvalidRequest)
	}
	events, err := s.store.ListFavoriteEvents(ctx, userID)
	if err != nil {
		return nil, storageError(fmt.Errorf("list favorites: %w", err))
	}
	views := make([]model.EventView, 0, len(events))
	for _, e := range events {
		v, err := s.view(ctx, e)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// ListEventBookings returns the bookings for an event to its organizer.
func (s *EventService) ListEventBookings(ctx context.Context, organizerID, eventID string) ([]model.Booking, error) {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != organizerID {
		return nil, fmt.Errorf("%w: event %s belongs to another organizer", model.ErrForbidden, eventID)
	}
	bookings, err := s.store.ListBookings(ctx, eventID)
	if err != nil {
		return nil, storageError(fmt.Errorf("list bookings: %w", err))
	}
	return bookings, nil
}

// ListUserBookings returns every booking owned by userID, newest first.
func (s *EventService) ListUserBookings(ctx context.Context, userID string) ([]model.Booking, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrInvalidRequest)
	}
	bookings, err := s.store.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, storageError(fmt.Errorf("list user bookings: %w", err))
	}
	return bookings, nil
}

// GetUserBooking returns a booking if userID owns it.
func (s *EventService) GetUserBooking(ctx context.Context, userID, transactionID string) (*model.Booking, error) {
	b, err := s.store.GetBookingByTransactionID(ctx, strings.TrimSpace(transactionID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrTicketNotFound, transactionID)
		}
		return nil, storageError(fmt.Errorf("get booking: %w", err))
	}
	if b.UserID != userID {
		return nil, fmt.Errorf("%w: booking belongs to another user", model.ErrForbidden)
	}
	return b, nil
}

// IsOrganizer reports whether userID listed eventID.
func (s *EventService) IsOrganizer(ctx context.Context, userID, eventID string) (bool, error) {
	event, err := s.getEvent(ctx, eventID)
	if err != nil {
		return false, err
	}
	return event.OrganizerID == userID, nil
}

func (s *EventService) getEvent(ctx context.Context, id string) (*model.Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: event id is required", model.ErrInvalidRequest)
	}
	event, err := s.store.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", model.ErrEventNotFound, id)
		}
		return nil, storageError(fmt.Errorf("get event: %w", err))
	}
	return event, nil
}

func (s *EventService) view(ctx context.Context, e model.Event) (model.EventView, error) {
	bookings, err := s.store.ListBookings(ctx, e.ID)
	if err != nil {
		return model.EventView{}, storageError(fmt.Errorf("list bookings: %w", err))
	}
	return viewOf(e, bookings, s.logger.With("event_id", e.ID)), nil
}

func (s *EventService) listViews(ctx context.Context, keep func(*model.Event) bool) ([]model.EventView, error) {
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, storageError(fmt.Errorf("list events: %w", err))
	}

	views := make([]model.EventView, 0, len(events))
	for i := range events {
		if !keep(&events[i]) {
			continue
		}
		v, err := s.view(ctx, events[i])
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func validateInventory(capacity int, priceCents int64) error {
	switch {
	case capacity < 0:
		return fmt.Errorf("%w: capacity cannot be negative", model.ErrInvalidRequest)
	case capacity > maxCapacity:
		return fmt.Errorf("%w: capacity cannot exceed 100,000", model.ErrInvalidRequest)
	case priceCents < 0:
		return fmt.Errorf("%w: price cannot be negative", model.ErrInvalidRequest)
	case priceCents > maxPriceCents:
		return fmt.Errorf("%w: price cannot exceed 1,000,000.00", model.ErrInvalidRequest)
	}
	return nil
}
