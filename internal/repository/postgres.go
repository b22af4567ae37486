package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	eventColumns = `id, name, description, location, organizer_id, organizer_name,
		starts_at, category, capacity, price_cents, created_at, updated_at`
	bookingColumns = `id, event_id, user_id, quantity, total_cost_cents, created_at,
		event_name, user_name, user_email, user_mobile`
)

// favoriteEventsQuery selects a user's favorite events. The favorites side is
// projected in a subquery so eventColumns stays unambiguous.
func favoriteEventsQuery(placeholder string) string {
	return `SELECT ` + eventColumns + `
		FROM events
		JOIN (SELECT event_id, created_at AS favorited_at
		      FROM favorites WHERE user_id = ` + placeholder + `) f
		  ON f.event_id = events.id
		ORDER BY f.favorited_at DESC, events.id ASC`
}

// PostgresStore persists events and bookings in PostgreSQL via pgx.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetEvent returns an event or ErrNotFound.
func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return pgGetEvent(ctx, s.db, id)
}

// ListEvents returns all events ordered by creation time descending.
func (s *PostgresStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	return pgListEvents(ctx, s.db,
		`SELECT `+eventColumns+`
		 FROM events
		 ORDER BY created_at DESC`,
	)
}

// CreateEvent inserts an event; an existing id is ErrDuplicate.
func (s *PostgresStore) CreateEvent(ctx context.Context, e *model.Event) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.Name, e.Description, e.Location, e.OrganizerID, e.OrganizerName,
		e.StartsAt, string(e.Category), e.Capacity, e.PriceCents, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return pgError("insert event", err)
	}
	return nil
}

// UpdateEvent overwrites the mutable columns of an existing event.
func (s *PostgresStore) UpdateEvent(ctx context.Context, e *model.Event) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE events
		 SET name = $2, description = $3, location = $4, starts_at = $5,
		     category = $6, capacity = $7, price_cents = $8, updated_at = $9
		 WHERE id = $1`,
		e.ID, e.Name, e.Description, e.Location, e.StartsAt,
		string(e.Category), e.Capacity, e.PriceCents, e.UpdatedAt,
	)
	if err != nil {
		return pgError("update event", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBookings returns an event's bookings in creation order.
func (s *PostgresStore) ListBookings(ctx context.Context, eventID string) ([]model.Booking, error) {
	return pgListBookings(ctx, s.db, `WHERE event_id = $1 ORDER BY created_at ASC`, eventID)
}

// ListBookingsByUser returns a user's bookings, newest first.
func (s *PostgresStore) ListBookingsByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	return pgListBookings(ctx, s.db, `WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// CreateBooking inserts a booking outside any event transaction.
func (s *PostgresStore) CreateBooking(ctx context.Context, b *model.Booking) error {
	return pgCreateBooking(ctx, s.db, b)
}

// GetBookingByTransactionID returns a single booking or ErrNotFound.
func (s *PostgresStore) GetBookingByTransactionID(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(s.db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id,
	))
	if err != nil {
		return nil, pgError("get booking", err)
	}
	return b, nil
}

// AddFavorite inserts a favorite, ignoring repeats.
func (s *PostgresStore) AddFavorite(ctx context.Context, userID, eventID string, at time.Time) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO favorites (user_id, event_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, event_id) DO NOTHING`,
		userID, eventID, at,
	)
	if err != nil {
		return pgError("add favorite", err)
	}
	return nil
}

// RemoveFavorite deletes a favorite if present.
func (s *PostgresStore) RemoveFavorite(ctx context.Context, userID, eventID string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND event_id = $2`,
		userID, eventID,
	)
	if err != nil {
		return pgError("remove favorite", err)
	}
	return nil
}

// ListFavoriteEvents returns a user's favorite events, newest favorite first.
func (s *PostgresStore) ListFavoriteEvents(ctx context.Context, userID string) ([]model.Event, error) {
	return pgListEvents(ctx, s.db, favoriteEventsQuery("$1"), userID)
}

// InEventTx runs fn inside a transaction that holds a row lock on the event.
//
// A plain read-then-write lets two transactions both observe the same free
// capacity before either inserts, so both commit and the event is oversold.
// SELECT ... FOR UPDATE takes an exclusive lock on the event row; any other
// InEventTx for the same event blocks on that SELECT until this transaction
// commits or rolls back, so their capacity checks see our booking.
func (s *PostgresStore) InEventTx(ctx context.Context, eventID string, fn func(tx BookingTx) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return pgError("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	var locked string
	err = tx.QueryRow(ctx,
		`SELECT id FROM events WHERE id = $1 FOR UPDATE`,
		eventID,
	).Scan(&locked)
	if err != nil {
		return pgError("lock event row", err)
	}

	if err = fn(&pgBookingTx{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return pgError("commit transaction", err)
	}
	return nil
}

// pgBookingTx routes BookingTx calls through an open transaction.
type pgBookingTx struct {
	tx pgx.Tx
}

func (t *pgBookingTx) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return pgGetEvent(ctx, t.tx, id)
}

func (t *pgBookingTx) ListBookings(ctx context.Context, eventID string) ([]model.Booking, error) {
	return pgListBookings(ctx, t.tx, `WHERE event_id = $1 ORDER BY created_at ASC`, eventID)
}

func (t *pgBookingTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	return pgCreateBooking(ctx, t.tx, b)
}

// ─── Shared queries ──────────────────────────────────────────────────────────

func pgGetEvent(ctx context.Context, q querier, id string) (*model.Event, error) {
	e, err := scanEvent(q.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	))
	if err != nil {
		return nil, pgError("get event", err)
	}
	return e, nil
}

func pgListEvents(ctx context.Context, q querier, sql string, args ...any) ([]model.Event, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, pgError("list events", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, pgError("scan event", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError("list events", err)
	}
	return events, nil
}

func pgListBookings(ctx context.Context, q querier, where string, arg any) ([]model.Booking, error) {
	rows, err := q.Query(ctx, `SELECT `+bookingColumns+` FROM bookings `+where, arg)
	if err != nil {
		return nil, pgError("list bookings", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, pgError("scan booking", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError("list bookings", err)
	}
	return bookings, nil
}

func pgCreateBooking(ctx context.Context, q querier, b *model.Booking) error {
	_, err := q.Exec(ctx,
		`INSERT INTO bookings (`+bookingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID, b.EventID, b.UserID, b.Quantity, b.TotalCostCents, b.CreatedAt,
		b.EventName, b.UserName, b.UserEmail, b.UserMobile,
	)
	if err != nil {
		return pgError("insert booking", err)
	}
	return nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		e        model.Event
		category string
	)
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Location, &e.OrganizerID, &e.OrganizerName,
		&e.StartsAt, &category, &e.Capacity, &e.PriceCents, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Category = model.Category(category)
	e.Normalize()
	return &e, nil
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.EventID, &b.UserID, &b.Quantity, &b.TotalCostCents, &b.CreatedAt,
		&b.EventName, &b.UserName, &b.UserEmail, &b.UserMobile)
	if err != nil {
		return nil, err
	}
	b.Normalize()
	return &b, nil
}

// pgError maps driver errors onto repository errors. A foreign key
// violation means the referenced event does not exist. Deadline expiry is kept
// visible through errors.Is(err, context.DeadlineExceeded).
func pgError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		case "23503":
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
	}
	if pgconn.Timeout(err) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, context.DeadlineExceeded, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
