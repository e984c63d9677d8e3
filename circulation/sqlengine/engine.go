package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/lendkit/circulate/circulation"
	"github.com/lendkit/circulate/circulation/sqlengine/internal/adapters"
)

const (
	defaultItemsTableName       = "items"
	defaultPatronsTableName     = "patrons"
	defaultPatronLoansTableName = "patron_loans"
	defaultItemLoansTableName   = "item_loans"

	// DialectPostgres selects the postgres SQL dialect.
	DialectPostgres = "postgres"
	// DialectSQLite selects the sqlite3 SQL dialect for the embedded backend.
	DialectSQLite = "sqlite3"

	colID           = "id"
	colTitle        = "title"
	colAuthors      = "authors"
	colISBN         = "isbn"
	colISBN13       = "isbn13"
	colMetadata     = "metadata"
	colAvailable    = "available"
	colLoanID       = "loan_id"
	colItemID       = "item_id"
	colPatronID     = "patron_id"
	colCheckedOutAt = "checked_out_at"
	colCheckedInAt  = "checked_in_at"

	logMsgDBQueryFailed      = "database query execution failed"
	logMsgDBExecFailed       = "database statement execution failed"
	logMsgCloseRowsFailed    = "failed to close database rows"
	logMsgScanRowFailed      = "failed to scan database row"
	logMsgRowsAffectedFailed = "failed to get rows affected count"
	logMsgBuildQueryFailed   = "failed to build sql statement"
	logMsgSQLExecuted        = "executed sql for: "
	logMsgOperation          = "store operation: "
	logAttrError             = "error"
	logAttrQuery             = "query"
	logAttrDurationMS        = "duration_ms"
	logAttrRowCount          = "row_count"
	logAttrItemID            = "item_id"
	logAttrPatronID          = "patron_id"
)

type sqlQueryString = string

// engine bundles the database adapter, the SQL dialect, the table names and
// the optional logger. All three stores share one engine value.
type engine struct {
	db      adapters.DBAdapter
	dialect string
	logger  circulation.Logger
	tables  tableNames
}

type tableNames struct {
	items       string
	patrons     string
	patronLoans string
	itemLoans   string
}

func defaultTableNames() tableNames {
	return tableNames{
		items:       defaultItemsTableName,
		patrons:     defaultPatronsTableName,
		patronLoans: defaultPatronLoansTableName,
		itemLoans:   defaultItemLoansTableName,
	}
}

// NewStoresFromPGXPool creates the three stores on top of a pgx pool,
// with optional configuration.
func NewStoresFromPGXPool(pool *pgxpool.Pool, options ...Option) (CatalogStore, PatronRegistry, LoanIndex, error) {
	if pool == nil {
		return CatalogStore{}, PatronRegistry{}, LoanIndex{}, circulation.ErrNilDatabaseConnection
	}

	return buildStores(adapters.NewPGXAdapter(pool), options...)
}

// NewStoresFromSQLDB creates the three stores on top of a database/sql
// handle, with optional configuration. Combine with WithDialect(DialectSQLite)
// for the embedded sqlite backend.
func NewStoresFromSQLDB(db *sql.DB, options ...Option) (CatalogStore, PatronRegistry, LoanIndex, error) {
	if db == nil {
		return CatalogStore{}, PatronRegistry{}, LoanIndex{}, circulation.ErrNilDatabaseConnection
	}

	return buildStores(adapters.NewSQLAdapter(db), options...)
}

// NewStoresFromSQLX creates the three stores on top of a sqlx handle,
// with optional configuration.
func NewStoresFromSQLX(db *sqlx.DB, options ...Option) (CatalogStore, PatronRegistry, LoanIndex, error) {
	if db == nil {
		return CatalogStore{}, PatronRegistry{}, LoanIndex{}, circulation.ErrNilDatabaseConnection
	}

	return buildStores(adapters.NewSQLXAdapter(db), options...)
}

func buildStores(db adapters.DBAdapter, options ...Option) (CatalogStore, PatronRegistry, LoanIndex, error) {
	e := engine{
		db:      db,
		dialect: DialectPostgres,
		tables:  defaultTableNames(),
	}

	for _, option := range options {
		if err := option(&e); err != nil {
			return CatalogStore{}, PatronRegistry{}, LoanIndex{}, err
		}
	}

	return CatalogStore{e: e}, PatronRegistry{e: e}, LoanIndex{e: e}, nil
}

func (e engine) builder() goqu.DialectWrapper {
	return goqu.Dialect(e.dialect)
}

// executeQuery executes the SQL query and returns rows with timing information.
func (e engine) executeQuery(ctx context.Context, sqlQuery sqlQueryString, action string) (
	adapters.DBRows,
	time.Duration,
	error,
) {

	start := time.Now()
	rows, queryErr := e.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	e.logQueryWithDuration(sqlQuery, action, duration)

	if queryErr != nil {
		if e.logger != nil {
			e.logger.Error(logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		}

		return nil, duration, errors.Join(circulation.ErrStore, queryErr)
	}

	return rows, duration, nil
}

// executeStatement executes a mutating SQL statement and returns the number
// of affected rows with timing information.
func (e engine) executeStatement(ctx context.Context, sqlQuery sqlQueryString, action string) (
	int64,
	time.Duration,
	error,
) {

	start := time.Now()
	result, execErr := e.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	e.logQueryWithDuration(sqlQuery, action, duration)

	if execErr != nil {
		if e.logger != nil {
			e.logger.Error(logMsgDBExecFailed, logAttrError, execErr.Error(), logAttrQuery, sqlQuery)
		}

		return 0, duration, errors.Join(circulation.ErrStore, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		if e.logger != nil {
			e.logger.Error(logMsgRowsAffectedFailed, logAttrError, rowsAffectedErr.Error())
		}

		return 0, duration, errors.Join(circulation.ErrStore, rowsAffectedErr)
	}

	return rowsAffected, duration, nil
}

// closeRows safely closes database rows and logs any errors.
func (e engine) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if e.logger != nil {
			e.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

func (e engine) buildError(action string, toSQLErr error) error {
	if e.logger != nil {
		e.logger.Error(logMsgBuildQueryFailed, logAttrError, toSQLErr.Error(), logAttrQuery, action)
	}

	return errors.Join(circulation.ErrStore, toSQLErr)
}

func (e engine) scanError(scanErr error) error {
	if e.logger != nil {
		e.logger.Error(logMsgScanRowFailed, logAttrError, scanErr.Error())
	}

	return errors.Join(circulation.ErrStore, scanErr)
}

// logQueryWithDuration logs SQL with execution time at debug level if the logger is configured.
func (e engine) logQueryWithDuration(sqlQuery string, action string, duration time.Duration) {
	if e.logger != nil {
		e.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, e.durationToMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if the logger is configured.
func (e engine) logOperation(action string, args ...any) {
	if e.logger != nil {
		e.logger.Info(logMsgOperation+action, args...)
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (e engine) durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// boolColumn scans a boolean column across backends: postgres delivers a
// real bool, sqlite delivers an integer.
type boolColumn struct {
	value bool
}

func (b *boolColumn) Scan(src any) error {
	switch v := src.(type) {
	case bool:
		b.value = v
	case int64:
		b.value = v != 0
	case []byte:
		b.value = len(v) > 0 && v[0] != '0' && v[0] != 'f' && v[0] != 'F'
	case string:
		b.value = len(v) > 0 && v[0] != '0' && v[0] != 'f' && v[0] != 'F'
	default:
		return fmt.Errorf("cannot scan %T into bool column", src)
	}

	return nil
}
