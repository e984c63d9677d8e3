package sqlengine

import (
	"github.com/lendkit/circulate/circulation"
)

// Option defines a functional option for configuring the stores.
type Option func(*engine) error

// WithLogger sets the logger for the stores.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: generated SQL with execution timing (development use)
// Info level: operation outcomes, row counts, durations (production-safe)
// Warn level: non-critical issues like cleanup failures
// Error level: failures that cause operation failures.
func WithLogger(logger circulation.Logger) Option {
	return func(e *engine) error {
		e.logger = logger
		return nil
	}
}

// WithDialect sets the SQL dialect for statement generation.
// Supported values are DialectPostgres (the default) and DialectSQLite.
func WithDialect(dialect string) Option {
	return func(e *engine) error {
		switch dialect {
		case DialectPostgres, DialectSQLite:
			e.dialect = dialect
			return nil
		default:
			return circulation.ErrUnsupportedDialect
		}
	}
}

// WithTableNames overrides the default table names
// (items, patrons, patron_loans, item_loans).
func WithTableNames(items, patrons, patronLoans, itemLoans string) Option {
	return func(e *engine) error {
		if items == "" || patrons == "" || patronLoans == "" || itemLoans == "" {
			return circulation.ErrEmptyTableName
		}

		e.tables = tableNames{
			items:       items,
			patrons:     patrons,
			patronLoans: patronLoans,
			itemLoans:   itemLoans,
		}

		return nil
	}
}
