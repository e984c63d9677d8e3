// Package sqlengine implements the catalog store, the patron registry and
// the item-side loan index on top of a relational database.
//
// All statements are generated with the goqu builder, so no user input is
// ever concatenated into SQL. Mutation outcomes are judged by rows affected
// (conditional inserts, guarded updates) instead of driver-specific error
// codes, which keeps the engine identical across the postgres and sqlite
// backends.
//
// Supported connection flavors: pgxpool.Pool, database/sql and sqlx.
// The embedded sqlite backend (modernc driver) runs through the
// database/sql flavor with the sqlite3 dialect.
package sqlengine
