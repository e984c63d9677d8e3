// Package enginetest provides ready-to-use sqlite-backed stores for tests,
// with the schema already applied.
package enginetest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lendkit/circulate/circulation"
	"github.com/lendkit/circulate/circulation/sqlengine"
	"github.com/lendkit/circulate/testutil/config"
)

// SchemaSQLite is the sqlite DDL for the three record sets.
// Timestamp columns are declared TIMESTAMP so the driver round-trips
// time.Time values.
const SchemaSQLite = `
CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	authors TEXT NOT NULL DEFAULT '',
	isbn TEXT NOT NULL DEFAULT '',
	isbn13 TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT '{}',
	available INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS patrons (
	id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS patron_loans (
	loan_id TEXT PRIMARY KEY,
	patron_id TEXT NOT NULL,
	item_id INTEGER NOT NULL,
	checked_out_at TIMESTAMP NOT NULL,
	checked_in_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_patron_loans_open ON patron_loans(patron_id, checked_in_at);

CREATE TABLE IF NOT EXISTS item_loans (
	loan_id TEXT PRIMARY KEY,
	item_id INTEGER NOT NULL,
	patron_id TEXT NOT NULL,
	checked_out_at TIMESTAMP NOT NULL,
	checked_in_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_item_loans_open ON item_loans(item_id, checked_in_at);
`

// NewSQLiteDB creates an in-memory sqlite database with the schema applied.
// The database is closed when the test finishes.
func NewSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := config.SQLiteMemoryDB()
	require.NoError(t, err, "failed to open in-memory sqlite database")

	_, err = db.Exec(SchemaSQLite)
	require.NoError(t, err, "failed to apply schema")

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// NewSQLiteStores creates the three stores over a fresh in-memory sqlite
// database.
func NewSQLiteStores(t *testing.T) (sqlengine.CatalogStore, sqlengine.PatronRegistry, sqlengine.LoanIndex) {
	t.Helper()

	db := NewSQLiteDB(t)

	catalog, patrons, loans, err := sqlengine.NewStoresFromSQLDB(db, sqlengine.WithDialect(sqlengine.DialectSQLite))
	require.NoError(t, err, "failed to build stores")

	return catalog, patrons, loans
}

// GivenItem inserts an available item with the given id and title.
func GivenItem(t *testing.T, catalog sqlengine.CatalogStore, id int64, title string) circulation.Item {
	t.Helper()

	item := circulation.Item{
		ID:        id,
		Title:     title,
		Authors:   "Test Author",
		ISBN13:    "9780000000000",
		Available: true,
	}

	require.NoError(t, catalog.Insert(context.Background(), item))

	return item
}
