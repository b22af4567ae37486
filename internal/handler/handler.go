// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/service"
	"github.com/go-chi/chi/v5"
)

// EventHandler holds all HTTP handlers for the ticketing API.
type EventHandler struct {
	events    *service.EventService
	committer *service.BookingCommitter
	validator *service.TicketValidator
	logger    *slog.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(
	events *service.EventService,
	committer *service.BookingCommitter,
	validator *service.TicketValidator,
	logger *slog.Logger,
) *EventHandler {
	return &EventHandler{events: events, committer: committer, validator: validator, logger: logger}
}

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// bookingResponse is returned from a successful booking attempt.
type bookingResponse struct {
	Booking      model.Booking      `json:"booking"`
	Confirmation model.Confirmation `json:"confirmation"`
	Available    int                `json:"available"`
}

type availabilityResponse struct {
	EventID   string `json:"event_id"`
	Capacity  int    `json:"capacity"`
	Sold      int    `json:"sold"`
	Available int    `json:"available"`
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrForbidden), errors.Is(err, model.ErrEventMismatch):
		return http.StatusForbidden
	case errors.Is(err, model.ErrEventNotFound), errors.Is(err, model.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInsufficientInventory):
		return http.StatusConflict
	case errors.Is(err, model.ErrStorageFailure):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Server-side failures are logged
// and their detail is not echoed to the client.
func (h *EventHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
		writeError(w, status, strings.ToLower(http.StatusText(status)))
		return
	}

	resp := model.ErrorResponse{Error: err.Error()}
	if available, ok := model.AvailableFrom(err); ok {
		resp.Available = &available
	}
	writeJSON(w, status, resp)
}

// ─── Events ───────────────────────────────────────────────────────────────────

// ListEvents handles GET /events
// ?q= searches by name, ?organizer= restricts to one organizer and
// ?category= to one category. Filters combine.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	filter := model.EventFilter{
		Query:       strings.TrimSpace(params.Get("q")),
		OrganizerID: strings.TrimSpace(params.Get("organizer")),
	}
	if raw := strings.TrimSpace(params.Get("category")); raw != "" {
		c, ok := model.LookupCategory(raw)
		if !ok {
			h.fail(w, r, fmt.Errorf("%w: unknown category %q", model.ErrInvalidRequest, raw))
			return
		}
		filter.Category = c
	}

	events, err := h.events.ListEvents(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.EventView{}
	}

	writeJSON(w, http.StatusOK, events)
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.CreateEvent(r.Context(), user, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	view, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// UpdateEvent handles PATCH /events/{id}
// Only the organizer who listed the event may change it.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req model.UpdateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.UpdateEvent(r.Context(), user.ID, chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// Availability handles GET /events/{id}/availability
func (h *EventHandler) Availability(w http.ResponseWriter, r *http.Request) {
	view, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, availabilityResponse{
		EventID:   view.ID,
		Capacity:  view.Capacity,
		Sold:      view.Sold,
		Available: view.Available,
	})
}

// ─── Bookings ─────────────────────────────────────────────────────────────────

// CreateBooking handles POST /events/{id}/bookings
// A rejected attempt for lack of inventory answers 409 with the count that
// was still available.
func (h *EventHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req model.CreateBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.committer.Attempt(r.Context(), model.BookingRequest{
		EventID:  chi.URLParam(r, "id"),
		Quantity: req.Quantity,
		User:     user,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, bookingResponse{
		Booking:      *res.Booking,
		Confirmation: service.BuildConfirmation(*res.Booking, res.Event, user),
		Available:    res.Available,
	})
}

// ListEventBookings handles GET /events/{id}/bookings
func (h *EventHandler) ListEventBookings(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	bookings, err := h.events.ListEventBookings(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if bookings == nil {
		bookings = []model.Booking{}
	}

	writeJSON(w, http.StatusOK, bookings)
}

// ListMyBookings handles GET /bookings
func (h *EventHandler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	bookings, err := h.events.ListUserBookings(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if bookings == nil {
		bookings = []model.Booking{}
	}

	writeJSON(w, http.StatusOK, bookings)
}

// ─── Favorites ────────────────────────────────────────────────────────────────

// AddFavorite handles PUT /events/{id}/favorite
func (h *EventHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	if err := h.events.AddFavorite(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveFavorite handles DELETE /events/{id}/favorite
func (h *EventHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	if err := h.events.RemoveFavorite(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFavorites handles GET /favorites
func (h *EventHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	events, err := h.events.ListFavorites(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// Confirmation handles GET /bookings/{txid}/confirmation
func (h *EventHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	b, err := h.events.GetUserBooking(r.Context(), user.ID, chi.URLParam(r, "txid"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, service.ConfirmationFor(*b))
}

// QRCode handles GET /bookings/{txid}/qr.png
// ?size= sets the edge length in pixels.
func (h *EventHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	size, err := qrSize(r.URL.Query().Get("size"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := h.events.GetUserBooking(r.Context(), user.ID, chi.URLParam(r, "txid"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	png, err := service.RenderQR(service.ConfirmationFor(*b), size)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func qrSize(raw string) (int, error) {
	if raw == "" {
		return defaultQRSize, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < minQRSize || n > maxQRSize {
		return 0, errors.New("size must be an integer between 128 and 1024")
	}
	return n, nil
}

// ─── Tickets ──────────────────────────────────────────────────────────────────

// ValidateTicket handles POST /tickets/validate
// The caller must be the organizer of the ticket's event.
func (h *EventHandler) ValidateTicket(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req model.ValidateTicketRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.EventID != "" {
		if !h.authorizeOrganizer(w, r, user.ID, req.EventID) {
			return
		}
	}

	ticket, err := h.validator.Validate(r.Context(), req.TransactionID, req.EventID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if req.EventID == "" {
		if !h.authorizeOrganizer(w, r, user.ID, ticket.Booking.EventID) {
			return
		}
	}

	writeJSON(w, http.StatusOK, ticket)
}

func (h *EventHandler) authorizeOrganizer(w http.ResponseWriter, r *http.Request, userID, eventID string) bool {
	ok, err := h.events.IsOrganizer(r.Context(), userID, eventID)
	if err != nil {
		h.fail(w, r, err)
		return false
	}
	if !ok {
		writeError(w, http.StatusForbidden, "only the event organizer can validate tickets")
		return false
	}
	return true
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
