package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/database"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// SQLiteStore persists events and bookings in a single SQLite file.
type SQLiteStore struct {
	pool *database.SQLitePool
}

// NewSQLiteStore constructs a SQLiteStore over an open pool.
func NewSQLiteStore(pool *database.SQLitePool) *SQLiteStore {
	return &SQLiteStore{pool: pool}
}

// withConn borrows a connection for the duration of fn.
func (s *SQLiteStore) withConn(ctx context.Context, op string, fn func(conn *sqlite.Conn) error) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return sqliteError(ctx, op, err)
	}
	defer s.pool.Put(conn)
	return fn(conn)
}

// GetEvent returns an event or ErrNotFound.
func (s *SQLiteStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var e *model.Event
	err := s.withConn(ctx, "get event", func(conn *sqlite.Conn) error {
		var err error
		e, err = sqliteGetEvent(ctx, conn, id)
		return err
	})
	return e, err
}

// ListEvents returns all events ordered by creation time descending.
func (s *SQLiteStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := s.withConn(ctx, "list events", func(conn *sqlite.Conn) error {
		var err error
		events, err = sqliteListEvents(ctx, conn,
			`SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`)
		return err
	})
	return events, err
}

// CreateEvent inserts an event; an existing id is ErrDuplicate.
func (s *SQLiteStore) CreateEvent(ctx context.Context, e *model.Event) error {
	return s.withConn(ctx, "insert event", func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`INSERT INTO events (`+eventColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{
				Args: []any{
					e.ID, e.Name, e.Description, e.Location, e.OrganizerID, e.OrganizerName,
					toNanos(e.StartsAt), string(e.Category), e.Capacity, e.PriceCents,
					toNanos(e.CreatedAt), toNanos(e.UpdatedAt),
				},
			})
		if err != nil {
			return sqliteError(ctx, "insert event", err)
		}
		return nil
	})
}

// UpdateEvent overwrites the mutable columns of an existing event.
func (s *SQLiteStore) UpdateEvent(ctx context.Context, e *model.Event) error {
	return s.withConn(ctx, "update event", func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`UPDATE events
			 SET name = ?, description = ?, location = ?, starts_at = ?,
			     category = ?, capacity = ?, price_cents = ?, updated_at = ?
			 WHERE id = ?`,
			&sqlitex.ExecOptions{
				Args: []any{
					e.Name, e.Description, e.Location, toNanos(e.StartsAt),
					string(e.Category), e.Capacity, e.PriceCents, toNanos(e.UpdatedAt),
					e.ID,
				},
			})
		if err != nil {
			return sqliteError(ctx, "update event", err)
		}
		if conn.Changes() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListBookings returns an event's bookings in creation order.
func (s *SQLiteStore) ListBookings(ctx context.Context, eventID string) ([]model.Booking, error) {
	var bookings []model.Booking
	err := s.withConn(ctx, "list bookings", func(conn *sqlite.Conn) error {
		var err error
		bookings, err = sqliteListBookings(ctx, conn, `WHERE event_id = ? ORDER BY created_at ASC`, eventID)
		return err
	})
	return bookings, err
}

// ListBookingsByUser returns a user's bookings, newest first.
func (s *SQLiteStore) ListBookingsByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	var bookings []model.Booking
	err := s.withConn(ctx, "list user bookings", func(conn *sqlite.Conn) error {
		var err error
		bookings, err = sqliteListBookings(ctx, conn, `WHERE user_id = ? ORDER BY created_at DESC`, userID)
		return err
	})
	return bookings, err
}

// CreateBooking inserts a booking outside any event transaction.
func (s *SQLiteStore) CreateBooking(ctx context.Context, b *model.Booking) error {
	return s.withConn(ctx, "insert booking", func(conn *sqlite.Conn) error {
		return sqliteCreateBooking(ctx, conn, b)
	})
}

// GetBookingByTransactionID returns the booking with the exact id.
func (s *SQLiteStore) GetBookingByTransactionID(ctx context.Context, id string) (*model.Booking, error) {
	var booking *model.Booking
	err := s.withConn(ctx, "get booking", func(conn *sqlite.Conn) error {
		bookings, err := sqliteListBookings(ctx, conn, `WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if len(bookings) == 0 {
			return ErrNotFound
		}
		booking = &bookings[0]
		return nil
	})
	return booking, err
}

// AddFavorite inserts a favorite, ignoring repeats.
func (s *SQLiteStore) AddFavorite(ctx context.Context, userID, eventID string, at time.Time) error {
	return s.withConn(ctx, "add favorite", func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`INSERT INTO favorites (user_id, event_id, created_at)
			 VALUES (?, ?, ?)
			 ON CONFLICT (user_id, event_id) DO NOTHING`,
			&sqlitex.ExecOptions{Args: []any{userID, eventID, toNanos(at)}})
		if err != nil {
			return sqliteError(ctx, "add favorite", err)
		}
		return nil
	})
}

// RemoveFavorite deletes a favorite if present.
func (s *SQLiteStore) RemoveFavorite(ctx context.Context, userID, eventID string) error {
	return s.withConn(ctx, "remove favorite", func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`DELETE FROM favorites WHERE user_id = ? AND event_id = ?`,
			&sqlitex.ExecOptions{Args: []any{userID, eventID}})
		if err != nil {
			return sqliteError(ctx, "remove favorite", err)
		}
		return nil
	})
}

// ListFavoriteEvents returns a user's favorite events, newest favorite first.
func (s *SQLiteStore) ListFavoriteEvents(ctx context.Context, userID string) ([]model.Event, error) {
	var events []model.Event
	err := s.withConn(ctx, "list favorites", func(conn *sqlite.Conn) error {
		var err error
		events, err = sqliteListEvents(ctx, conn, favoriteEventsQuery("?"), userID)
		return err
	})
	return events, err
}

// InEventTx runs fn inside BEGIN IMMEDIATE. SQLite allows one writer per
// database, so the immediate transaction serializes every booking attempt,
// not just those for eventID.
func (s *SQLiteStore) InEventTx(ctx context.Context, eventID string, fn func(tx BookingTx) error) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return sqliteError(ctx, "take connection", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return sqliteError(ctx, "begin transaction", err)
	}
	defer endTransaction(&err)

	return fn(&sqliteBookingTx{conn: conn})
}

// sqliteBookingTx runs each call on the transaction's connection with the
// call's own context as the interrupt.
type sqliteBookingTx struct {
	conn *sqlite.Conn
}

func (t *sqliteBookingTx) bind(ctx context.Context) func() {
	old := t.conn.SetInterrupt(ctx.Done())
	return func() { t.conn.SetInterrupt(old) }
}

func (t *sqliteBookingTx) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	defer t.bind(ctx)()
	return sqliteGetEvent(ctx, t.conn, id)
}

func (t *sqliteBookingTx) ListBookings(ctx context.Context, eventID string) ([]model.Booking, error) {
	defer t.bind(ctx)()
	return sqliteListBookings(ctx, t.conn, `WHERE event_id = ? ORDER BY created_at ASC`, eventID)
}

func (t *sqliteBookingTx) CreateBooking(ctx context.Context, b *model.Booking) error {
	defer t.bind(ctx)()
	return sqliteCreateBooking(ctx, t.conn, b)
}

// ─── Shared queries ──────────────────────────────────────────────────────────

func sqliteGetEvent(ctx context.Context, conn *sqlite.Conn, id string) (*model.Event, error) {
	var found *model.Event
	err := sqlitex.Execute(conn,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				e := readEvent(stmt)
				found = &e
				return nil
			},
		})
	if err != nil {
		return nil, sqliteError(ctx, "get event", err)
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func sqliteListEvents(ctx context.Context, conn *sqlite.Conn, query string, args ...any) ([]model.Event, error) {
	var events []model.Event
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			events = append(events, readEvent(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, sqliteError(ctx, "list events", err)
	}
	return events, nil
}

func sqliteListBookings(ctx context.Context, conn *sqlite.Conn, where string, arg any) ([]model.Booking, error) {
	var bookings []model.Booking
	err := sqlitex.Execute(conn,
		`SELECT `+bookingColumns+` FROM bookings `+where,
		&sqlitex.ExecOptions{
			Args: []any{arg},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				bookings = append(bookings, readBooking(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, sqliteError(ctx, "list bookings", err)
	}
	return bookings, nil
}

func sqliteCreateBooking(ctx context.Context, conn *sqlite.Conn, b *model.Booking) error {
	err := sqlitex.Execute(conn,
		`INSERT INTO bookings (`+bookingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				b.ID, b.EventID, b.UserID, b.Quantity, b.TotalCostCents, toNanos(b.CreatedAt),
				b.EventName, b.UserName, b.UserEmail, b.UserMobile,
			},
		})
	if err != nil {
		return sqliteError(ctx, "insert booking", err)
	}
	return nil
}

func readEvent(stmt *sqlite.Stmt) model.Event {
	e := model.Event{
		ID:            stmt.ColumnText(0),
		Name:          stmt.ColumnText(1),
		Description:   stmt.ColumnText(2),
		Location:      stmt.ColumnText(3),
		OrganizerID:   stmt.ColumnText(4),
		OrganizerName: stmt.ColumnText(5),
		StartsAt:      fromNanos(stmt.ColumnInt64(6)),
		Category:      model.Category(stmt.ColumnText(7)),
		Capacity:      stmt.ColumnInt(8),
		PriceCents:    stmt.ColumnInt64(9),
		CreatedAt:     fromNanos(stmt.ColumnInt64(10)),
		UpdatedAt:     fromNanos(stmt.ColumnInt64(11)),
	}
	e.Normalize()
	return e
}

func readBooking(stmt *sqlite.Stmt) model.Booking {
	b := model.Booking{
		ID:             stmt.ColumnText(0),
		EventID:        stmt.ColumnText(1),
		UserID:         stmt.ColumnText(2),
		Quantity:       stmt.ColumnInt(3),
		TotalCostCents: stmt.ColumnInt64(4),
		CreatedAt:      fromNanos(stmt.ColumnInt64(5)),
		EventName:      stmt.ColumnText(6),
		UserName:       stmt.ColumnText(7),
		UserEmail:      stmt.ColumnText(8),
		UserMobile:     stmt.ColumnText(9),
	}
	b.Normalize()
	return b
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// sqliteError maps SQLite result codes onto repository errors. An interrupt
// caused by an expired context is reported as the context's error.
func sqliteError(ctx context.Context, op string, err error) error {
	code := sqlite.ErrCode(err)
	switch {
	case code == sqlite.ResultConstraintPrimaryKey || code == sqlite.ResultConstraintUnique:
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	case code == sqlite.ResultConstraintForeignKey:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w: %w", op, ctx.Err(), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
