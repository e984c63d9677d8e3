package circulation

import (
	"errors"
)

// The four error kinds every component reports. Components wrap the
// underlying cause with errors.Join so callers can test the kind with
// errors.Is and still reach the cause with errors.As / Unwrap.
var (
	// ErrNotFound is returned when a referenced item, patron or loan does not exist.
	ErrNotFound = errors.New("referenced record does not exist")

	// ErrConstraint is returned on a uniqueness or business-rule violation,
	// e.g. inserting a duplicate item id or checking out an item that already
	// has an open loan.
	ErrConstraint = errors.New("constraint violation")

	// ErrStore is returned when the underlying persistence layer fails,
	// e.g. a connection or I/O error. It is the only kind worth retrying.
	ErrStore = errors.New("store operation failed")

	// ErrValidation is returned for malformed caller input,
	// e.g. an unknown search field or an empty query.
	ErrValidation = errors.New("invalid input")
)

var ErrNilDatabaseConnection = errors.New("database connection must not be nil")
var ErrEmptyTableName = errors.New("empty table name supplied")
var ErrUnsupportedDialect = errors.New("unsupported sql dialect")
