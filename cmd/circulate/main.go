// Command circulate is the interactive driver for the circulation core:
// it bootstraps a storage backend, imports the catalog once from a CSV
// export and runs the session menu loop (search and check out, check in,
// view open loans).
package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite" // embedded sqlite driver

	"github.com/lendkit/circulate/circulation"
	"github.com/lendkit/circulate/circulation/sqlengine"
	"github.com/lendkit/circulate/cmd/circulate/schema"
	"github.com/lendkit/circulate/importer"
	"github.com/lendkit/circulate/ledger"
	"github.com/lendkit/circulate/search"
)

const (
	backendSQLite   = "sqlite"
	backendPostgres = "postgres"
)

func main() {
	backend := flag.String("backend", backendSQLite, "storage backend: sqlite or postgres")
	dsn := flag.String("dsn", "circulate.db", "database path (sqlite) or connection string (postgres)")
	dataPath := flag.String("data", "data/books.csv", "catalog CSV export for one-time import")
	verbose := flag.Bool("verbose", false, "log generated SQL")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if err := run(context.Background(), *backend, *dsn, *dataPath, logger); err != nil {
		log.Fatalf("circulate: %v", err)
	}
}

func run(ctx context.Context, backend string, dsn string, dataPath string, logger *slog.Logger) error {
	catalog, patrons, loans, err := buildStores(ctx, backend, dsn, logger)
	if err != nil {
		return err
	}

	if importErr := importCatalog(ctx, catalog, dataPath, logger); importErr != nil {
		return importErr
	}

	engine, err := search.NewEngine(catalog, search.WithLogger(logger))
	if err != nil {
		return err
	}

	circLedger, err := ledger.NewLedger(catalog, loans, patrons, ledger.WithLogger(logger))
	if err != nil {
		return err
	}

	s := session{
		catalog: catalog,
		patrons: patrons,
		engine:  engine,
		ledger:  circLedger,
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}

	return s.run(ctx)
}

func buildStores(ctx context.Context, backend string, dsn string, logger *slog.Logger) (
	sqlengine.CatalogStore,
	sqlengine.PatronRegistry,
	sqlengine.LoanIndex,
	error,
) {

	ddl, ddlErr := schema.For(backend)
	if ddlErr != nil {
		return sqlengine.CatalogStore{}, sqlengine.PatronRegistry{}, sqlengine.LoanIndex{},
			fmt.Errorf("unknown backend %q", backend)
	}

	switch backend {
	case backendSQLite:
		db, err := openSQLite(dsn, ddl)
		if err != nil {
			return sqlengine.CatalogStore{}, sqlengine.PatronRegistry{}, sqlengine.LoanIndex{}, err
		}

		return sqlengine.NewStoresFromSQLDB(db,
			sqlengine.WithDialect(sqlengine.DialectSQLite),
			sqlengine.WithLogger(logger))

	case backendPostgres:
		pool, err := openPostgres(ctx, dsn, ddl)
		if err != nil {
			return sqlengine.CatalogStore{}, sqlengine.PatronRegistry{}, sqlengine.LoanIndex{}, err
		}

		return sqlengine.NewStoresFromPGXPool(pool, sqlengine.WithLogger(logger))

	default:
		return sqlengine.CatalogStore{}, sqlengine.PatronRegistry{}, sqlengine.LoanIndex{},
			fmt.Errorf("unknown backend %q", backend)
	}
}

func openSQLite(path string, ddl string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// the embedded backend serves one interactive session
	db.SetMaxOpenConns(1)

	if _, execErr := db.Exec(ddl); execErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", execErr)
	}

	return db, nil
}

func openPostgres(ctx context.Context, dsn string, ddl string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	if _, execErr := pool.Exec(ctx, ddl); execErr != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", execErr)
	}

	return pool, nil
}

func importCatalog(ctx context.Context, catalog sqlengine.CatalogStore, dataPath string, logger *slog.Logger) error {
	file, openErr := os.Open(dataPath)
	if openErr != nil {
		if errors.Is(openErr, os.ErrNotExist) {
			logger.Info("no catalog export found, skipping import", "path", dataPath)
			return nil
		}

		return fmt.Errorf("open catalog export: %w", openErr)
	}
	defer file.Close()

	imported, importErr := importer.NewImporter(catalog, logger).Import(ctx, file)
	if importErr != nil {
		return fmt.Errorf("import catalog: %w", importErr)
	}

	logger.Info("catalog import finished", "imported", imported)

	return nil
}

// session holds the interactive state: one patron driving search, checkout
// and check-in sequentially.
type session struct {
	patronID string
	catalog  sqlengine.CatalogStore
	patrons  sqlengine.PatronRegistry
	engine   search.Engine
	ledger   ledger.Ledger
	in       *bufio.Reader
	out      io.Writer
}

func (s *session) run(ctx context.Context) error {
	patronID, err := s.prompt("Hello, what's your patron ID? ")
	if err != nil || patronID == "" {
		return errors.New("a patron ID is required")
	}

	if ensureErr := s.patrons.Ensure(ctx, patronID); ensureErr != nil {
		return fmt.Errorf("create patron: %w", ensureErr)
	}

	s.patronID = patronID
	s.printf("Welcome, %s.\n", patronID)

	for {
		s.printf("\nWhat would you like to do today?\n")
		s.printf("1. Check out an item\n")
		s.printf("2. Check in an item\n")
		s.printf("3. View my info\n")
		s.printf("4. Leave\n")

		choice, selErr := s.promptSelection("\nPlease enter a number: ", 4)
		if selErr != nil {
			if quit, quitErr := s.endOnReadFailure(selErr); quit {
				return quitErr
			}

			s.printf("%s\n", renderError(selErr))

			continue
		}

		var flowErr error

		switch choice {
		case 1:
			flowErr = s.checkoutFlow(ctx)
		case 2:
			flowErr = s.checkinFlow(ctx)
		case 3:
			s.viewInfo(ctx)
		case 4:
			s.printf("Please come again.\n")
			return nil
		}

		if flowErr != nil {
			if quit, quitErr := s.endOnReadFailure(flowErr); quit {
				return quitErr
			}

			return flowErr
		}
	}
}

// endOnReadFailure decides whether an error means the input is gone.
// Plain end of input ends the session like menu option 4; any other read
// failure ends it with the error.
func (s *session) endOnReadFailure(err error) (bool, error) {
	if errors.Is(err, io.EOF) {
		s.printf("\nPlease come again.\n")
		return true, nil
	}

	if errors.Is(err, circulation.ErrValidation) {
		return false, nil
	}

	return true, fmt.Errorf("read input: %w", err)
}

func (s *session) checkoutFlow(ctx context.Context) error {
	field, ok, err := s.promptField()
	if err != nil {
		return err
	}

	if !ok {
		return nil
	}

	query, err := s.prompt("Please provide the search text: ")
	if err != nil {
		return err
	}

	candidates, searchErr := s.engine.Search(ctx, field, query)
	if searchErr != nil {
		s.printf("%s\n", renderError(searchErr))
		return nil
	}

	if len(candidates) == 0 {
		s.printf("No matches found.\n")
		return s.addItemFlow(ctx)
	}

	s.printf("Search results: title | authors | isbn13\n")
	for i, c := range candidates {
		s.printf("%d. %s | %s | %s\n", i+1, c.Title, c.Authors, c.ExternalID)
	}
	s.printf("%d. My item isn't on the list.\n", len(candidates)+1)

	choice, selErr := s.promptSelection("Make selection: ", len(candidates)+1)
	if selErr != nil {
		if errors.Is(selErr, circulation.ErrValidation) {
			s.printf("%s\n", renderError(selErr))
			return nil
		}

		return selErr
	}

	if choice == len(candidates)+1 {
		return s.addItemFlow(ctx)
	}

	if checkoutErr := s.ledger.Checkout(ctx, candidates[choice-1].ItemID, s.patronID); checkoutErr != nil {
		s.printf("%s\n", renderError(checkoutErr))
		return nil
	}

	s.printf("Item successfully checked out.\n")

	return nil
}

// addItemFlow adds a missing item and checks it out to the session patron.
func (s *session) addItemFlow(ctx context.Context) error {
	answer, err := s.prompt("We don't seem to have that item. Would you like to add it? (Y/N) ")
	if err != nil {
		return err
	}

	if !strings.EqualFold(answer, "y") {
		return nil
	}

	title, err := s.prompt("What's the title? ")
	if err != nil {
		return err
	}

	authors, err := s.prompt("Who are the author(s)? ")
	if err != nil {
		return err
	}

	isbn13, err := s.prompt("What is the ISBN13? ")
	if err != nil {
		return err
	}

	itemID, idErr := s.catalog.NextID(ctx)
	if idErr != nil {
		s.printf("%s\n", renderError(idErr))
		return nil
	}

	item := circulation.Item{
		ID:        itemID,
		Title:     title,
		Authors:   authors,
		ISBN13:    isbn13,
		Available: true,
	}

	if insertErr := s.catalog.Insert(ctx, item); insertErr != nil {
		s.printf("%s\n", renderError(insertErr))
		return nil
	}

	if checkoutErr := s.ledger.Checkout(ctx, itemID, s.patronID); checkoutErr != nil {
		s.printf("%s\n", renderError(checkoutErr))
		return nil
	}

	s.printf("Item added and checked out to your profile.\n")

	return nil
}

func (s *session) checkinFlow(ctx context.Context) error {
	loans := s.viewInfo(ctx)
	if len(loans) == 0 {
		return nil
	}

	choice, err := s.promptSelection("Which item would you like to return? ", len(loans))
	if err != nil {
		if errors.Is(err, circulation.ErrValidation) {
			s.printf("%s\n", renderError(err))
			return nil
		}

		return err
	}

	if checkinErr := s.ledger.Checkin(ctx, loans[choice-1].ItemID, s.patronID); checkinErr != nil {
		s.printf("%s\n", renderError(checkinErr))
		return nil
	}

	s.printf("Item successfully checked in.\n")

	return nil
}

func (s *session) viewInfo(ctx context.Context) []circulation.PatronLoan {
	loans, err := s.ledger.OpenLoans(ctx, s.patronID)
	if err != nil {
		s.printf("%s\n", renderError(err))
		return nil
	}

	if len(loans) == 0 {
		s.printf("You have no items out.\n")
		return nil
	}

	s.printf("You currently have %d item(s) out:\n", len(loans))
	for i, loan := range loans {
		s.printf("%d. %s | %s | out since %s\n", i+1, loan.Title, loan.Authors, loan.CheckedOutAt.Format("2006-01-02 15:04"))
	}

	return loans
}

func (s *session) promptField() (circulation.SearchField, bool, error) {
	answer, err := s.prompt("Would you like to search using a title, author, or ISBN13? ")
	if err != nil {
		return "", false, err
	}

	switch strings.ToLower(answer) {
	case "title":
		return circulation.FieldTitle, true, nil
	case "author":
		return circulation.FieldAuthors, true, nil
	case "isbn13":
		return circulation.FieldExternalID, true, nil
	default:
		s.printf("Please provide a valid search type (title, author, or ISBN13).\n")
		return "", false, nil
	}
}

// promptSelection parses a 1-based menu selection; non-numeric or
// out-of-range input is a validation error the caller renders and retries.
// A read failure is passed through so the caller can end the session.
func (s *session) promptSelection(promptText string, max int) (int, error) {
	answer, err := s.prompt(promptText)
	if err != nil {
		return 0, err
	}

	choice, parseErr := strconv.Atoi(answer)
	if parseErr != nil {
		return 0, errors.Join(circulation.ErrValidation, parseErr)
	}

	if choice < 1 || choice > max {
		return 0, errors.Join(circulation.ErrValidation, fmt.Errorf("selection %d is out of range 1..%d", choice, max))
	}

	return choice, nil
}

// prompt reads one input line. A read failure with no line content is
// reported as an error (io.EOF when the input is exhausted), never as an
// empty answer; an empty answer always means an actual empty line.
func (s *session) prompt(promptText string) (string, error) {
	s.printf("%s", promptText)

	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}

	return strings.TrimSpace(line), nil
}

func (s *session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// renderError maps an error to the message shown in the menu loop.
// No error ends the session; the current interaction can be retried.
func renderError(err error) string {
	switch {
	case errors.Is(err, circulation.ErrValidation):
		return "Please provide a valid input."
	case errors.Is(err, circulation.ErrConstraint):
		return "That item is already checked out."
	case errors.Is(err, circulation.ErrNotFound):
		return "That record could not be found."
	case errors.Is(err, circulation.ErrStore):
		return "The database is having trouble. Please try again."
	default:
		return fmt.Sprintf("Something went wrong: %v.", err)
	}
}
