package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

func TestOpenSQLite_AppliesSchema(t *testing.T) {
	pool, err := OpenSQLite(config.SQLiteConfig{
		Path:     filepath.Join(t.TempDir(), "schema.db"),
		PoolSize: 2,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	conn, err := pool.Take(context.Background())
	require.NoError(t, err)
	defer pool.Put(conn)

	var tables []string
	err = sqlitex.Execute(conn,
		`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				tables = append(tables, stmt.ColumnText(0))
				return nil
			},
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"bookings", "events", "favorites"}, tables)
}

func TestOpenSQLite_ForeignKeysEnforced(t *testing.T) {
	pool, err := OpenSQLite(config.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "fk.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	conn, err := pool.Take(context.Background())
	require.NoError(t, err)
	defer pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO bookings (id, event_id, user_id, quantity, total_cost_cents, created_at)
		 VALUES ('b1', 'missing', 'u1', 1, 100, 0)`, nil)
	assert.Error(t, err)
}

func TestOpenSQLite_EmptyPathRejected(t *testing.T) {
	_, err := OpenSQLite(config.SQLiteConfig{}, nil)
	assert.Error(t, err)
}
