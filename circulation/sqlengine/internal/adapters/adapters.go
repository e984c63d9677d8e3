package adapters

import "context"

// DBAdapter is the minimal database surface the storage engine needs.
// It hides whether the connection underneath is a pgx pool, a plain
// database/sql handle or a sqlx handle.
type DBAdapter interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
}

// DBRows is the iterator over query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
}

// DBResult reports the outcome of a statement execution.
type DBResult interface {
	RowsAffected() (int64, error)
}
