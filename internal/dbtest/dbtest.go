// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"regexp"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/recipes/pkg/database"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// Open returns a fresh database private to t, closed on cleanup.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()
	name := unsafeName.ReplaceAllString(t.Name(), "_")
	db, err := database.Connect(database.Config{
		Driver: database.DriverSQLite,
		DSN:    "file:" + name + "?mode=memory&cache=shared&_foreign_keys=on",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

// CreateCategory inserts a category and returns its id.
func CreateCategory(t testing.TB, db *sqlx.DB, name string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(db.Rebind(`INSERT INTO categories (name) VALUES (?) RETURNING id`), name).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateUser inserts an account with a placeholder hash and returns its id.
func CreateUser(t testing.TB, db *sqlx.DB, username string) int64 {
	t.Helper()
	var id int64
	q := db.Rebind(`INSERT INTO users (username, email, first_name, last_name, password_hash) VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := db.QueryRowx(q, username, username+"@example.com", "Test", "User", "x").Scan(&id)
	require.NoError(t, err)
	return id
}
