package database

// Both schemas keep the same column names so the repository queries differ
// only in placeholder syntax. Text columns are NOT NULL DEFAULT '' so a
// missing optional field decodes as the empty string and picks up the model
// defaults.

const postgresSchema = `
CREATE TABLE IF NOT EXISTS events (
	id             TEXT PRIMARY KEY,
	name           TEXT        NOT NULL DEFAULT '',
	description    TEXT        NOT NULL DEFAULT '',
	location       TEXT        NOT NULL DEFAULT '',
	organizer_id   TEXT        NOT NULL DEFAULT '',
	organizer_name TEXT        NOT NULL DEFAULT '',
	starts_at      TIMESTAMPTZ NOT NULL,
	category       TEXT        NOT NULL DEFAULT 'other',
	capacity       INTEGER     NOT NULL CHECK (capacity >= 0),
	price_cents    BIGINT      NOT NULL CHECK (price_cents >= 0),
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS bookings (
	id               TEXT PRIMARY KEY,
	event_id         TEXT        NOT NULL REFERENCES events (id),
	user_id          TEXT        NOT NULL,
	quantity         INTEGER     NOT NULL,
	total_cost_cents BIGINT      NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	event_name       TEXT        NOT NULL DEFAULT '',
	user_name        TEXT        NOT NULL DEFAULT '',
	user_email       TEXT        NOT NULL DEFAULT '',
	user_mobile      TEXT        NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS bookings_event_id_idx ON bookings (event_id);
CREATE INDEX IF NOT EXISTS bookings_user_id_idx ON bookings (user_id);

CREATE TABLE IF NOT EXISTS favorites (
	user_id    TEXT        NOT NULL,
	event_id   TEXT        NOT NULL REFERENCES events (id),
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, event_id)
);
`

// SQLite stores timestamps as Unix nanoseconds.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	id             TEXT PRIMARY KEY,
	name           TEXT    NOT NULL DEFAULT '',
	description    TEXT    NOT NULL DEFAULT '',
	location       TEXT    NOT NULL DEFAULT '',
	organizer_id   TEXT    NOT NULL DEFAULT '',
	organizer_name TEXT    NOT NULL DEFAULT '',
	starts_at      INTEGER NOT NULL,
	category       TEXT    NOT NULL DEFAULT 'other',
	capacity       INTEGER NOT NULL CHECK (capacity >= 0),
	price_cents    INTEGER NOT NULL CHECK (price_cents >= 0),
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bookings (
	id               TEXT PRIMARY KEY,
	event_id         TEXT    NOT NULL REFERENCES events (id),
	user_id          TEXT    NOT NULL,
	quantity         INTEGER NOT NULL,
	total_cost_cents INTEGER NOT NULL,
	created_at       INTEGER NOT NULL,
	event_name       TEXT    NOT NULL DEFAULT '',
	user_name        TEXT    NOT NULL DEFAULT '',
	user_email       TEXT    NOT NULL DEFAULT '',
	user_mobile      TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS bookings_event_id_idx ON bookings (event_id);
CREATE INDEX IF NOT EXISTS bookings_user_id_idx ON bookings (user_id);

CREATE TABLE IF NOT EXISTS favorites (
	user_id    TEXT    NOT NULL,
	event_id   TEXT    NOT NULL REFERENCES events (id),
	created_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, event_id)
);
`
