package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/lendkit/circulate/circulation"
)

const (
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 20 * time.Millisecond

	stepSetUnavailable  = "mark item unavailable"
	stepSetAvailable    = "mark item available"
	stepOpenItemLoan    = "open item-side loan"
	stepCloseItemLoan   = "close item-side loan"
	stepEnsurePatron    = "ensure patron exists"
	stepRecordLoan      = "record patron-side loan"
	stepClosePatronLoan = "close patron-side loan"

	logMsgStepFailed       = "ledger step failed"
	logMsgCheckoutComplete = "checkout complete"
	logMsgCheckinComplete  = "check-in complete"
	logAttrStep            = "step"
	logAttrError           = "error"
	logAttrItemID          = "item_id"
	logAttrPatronID        = "patron_id"
	logAttrLoanID          = "loan_id"
)

var (
	// ErrCheckoutIncomplete wraps the step failure that aborted a checkout.
	// Steps applied before the failure stay applied.
	ErrCheckoutIncomplete = errors.New("checkout did not complete, applied steps were not rolled back")

	// ErrCheckinIncomplete wraps the step failure that aborted a check-in.
	// Steps applied before the failure stay applied.
	ErrCheckinIncomplete = errors.New("check-in did not complete, applied steps were not rolled back")

	// ErrInvalidRetryAttempts is returned when retry attempts are not positive.
	ErrInvalidRetryAttempts = errors.New("retry attempts must be positive")

	// ErrInvalidRetryDelay is returned when the retry base delay is not positive.
	ErrInvalidRetryDelay = errors.New("retry base delay must be positive")
)

// CatalogStore is the catalog surface the ledger mutates and inspects.
// It is satisfied by sqlengine.CatalogStore.
type CatalogStore interface {
	SetAvailability(ctx context.Context, itemID int64, available bool) error
	Get(ctx context.Context, itemID int64) (circulation.Item, error)
}

// LoanIndex is the item-side loan surface the ledger writes to.
// It is satisfied by sqlengine.LoanIndex.
type LoanIndex interface {
	OpenLoan(ctx context.Context, loan circulation.Loan) error
	CloseLoan(ctx context.Context, itemID int64, patronID string, checkedInAt time.Time) error
	OpenLoanFor(ctx context.Context, itemID int64) (circulation.Loan, error)
}

// PatronRegistry is the patron-side surface the ledger writes to.
// It is satisfied by sqlengine.PatronRegistry.
type PatronRegistry interface {
	Ensure(ctx context.Context, patronID string) error
	RecordLoan(ctx context.Context, loan circulation.Loan) error
	CloseLoan(ctx context.Context, patronID string, itemID int64, checkedInAt time.Time) error
	OpenLoans(ctx context.Context, patronID string) ([]circulation.PatronLoan, error)
}

// Ledger drives the checkout / check-in state machine.
type Ledger struct {
	catalog CatalogStore
	loans   LoanIndex
	patrons PatronRegistry
	logger  circulation.Logger
	clock   func() time.Time

	retryAttempts  uint64
	retryBaseDelay time.Duration
}

// Option defines a functional option for configuring the Ledger.
type Option func(*Ledger) error

// WithLogger sets the logger for the ledger.
func WithLogger(logger circulation.Logger) Option {
	return func(l *Ledger) error {
		l.logger = logger
		return nil
	}
}

// WithClock overrides the time source used for loan timestamps.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) error {
		l.clock = clock
		return nil
	}
}

// WithRetry configures the bounded retry applied to each step.
// Only transient circulation.ErrStore failures are retried;
// ErrConstraint and ErrNotFound always fail fast.
func WithRetry(attempts uint64, baseDelay time.Duration) Option {
	return func(l *Ledger) error {
		if attempts == 0 {
			return ErrInvalidRetryAttempts
		}

		if baseDelay <= 0 {
			return ErrInvalidRetryDelay
		}

		l.retryAttempts = attempts
		l.retryBaseDelay = baseDelay

		return nil
	}
}

// NewLedger creates a Ledger over the three stores, with optional configuration.
func NewLedger(catalog CatalogStore, loans LoanIndex, patrons PatronRegistry, options ...Option) (Ledger, error) {
	ledger := Ledger{
		catalog:        catalog,
		loans:          loans,
		patrons:        patrons,
		clock:          time.Now,
		retryAttempts:  defaultRetryAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
	}

	for _, option := range options {
		if err := option(&ledger); err != nil {
			return Ledger{}, err
		}
	}

	return ledger, nil
}

// Checkout lends the item to the patron. Step order is fixed:
//
//  1. mark the item unavailable in the catalog
//  2. open the loan in the item-side loan index
//  3. ensure the patron record exists
//  4. record the loan on the patron side
//
// A failed step aborts the remaining ones; the error is wrapped with
// ErrCheckoutIncomplete and keeps its kind (ErrConstraint for a double
// checkout from step 2, ErrNotFound for an unknown item from step 1).
// Steps already applied are not compensated. Re-running a checkout that
// failed after step 1 repairs the state: step 1 is an idempotent update and
// step 2 then finds no open loan.
func (l Ledger) Checkout(ctx context.Context, itemID int64, patronID string) error {
	loan := circulation.BuildLoan(itemID, patronID, l.clock())

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{stepSetUnavailable, func(ctx context.Context) error {
			return l.catalog.SetAvailability(ctx, itemID, false)
		}},
		{stepOpenItemLoan, func(ctx context.Context) error {
			return l.loans.OpenLoan(ctx, loan)
		}},
		{stepEnsurePatron, func(ctx context.Context) error {
			return l.patrons.Ensure(ctx, patronID)
		}},
		{stepRecordLoan, func(ctx context.Context) error {
			return l.patrons.RecordLoan(ctx, loan)
		}},
	}

	for _, step := range steps {
		if err := l.runStep(ctx, step.name, step.run); err != nil {
			return errors.Join(ErrCheckoutIncomplete, err)
		}
	}

	l.logOperation(logMsgCheckoutComplete,
		logAttrItemID, itemID,
		logAttrPatronID, patronID,
		logAttrLoanID, loan.ID)

	return nil
}

// Checkin returns the item from the patron. Step order is fixed:
//
//  1. mark the item available in the catalog
//  2. close the loan in the item-side loan index
//  3. close the loan on the patron side
//
// Same weak-consistency policy as Checkout: a failed step aborts the
// remaining ones, the error is wrapped with ErrCheckinIncomplete, and
// applied steps are not compensated.
func (l Ledger) Checkin(ctx context.Context, itemID int64, patronID string) error {
	now := l.clock().UTC()

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{stepSetAvailable, func(ctx context.Context) error {
			return l.catalog.SetAvailability(ctx, itemID, true)
		}},
		{stepCloseItemLoan, func(ctx context.Context) error {
			return l.loans.CloseLoan(ctx, itemID, patronID, now)
		}},
		{stepClosePatronLoan, func(ctx context.Context) error {
			return l.patrons.CloseLoan(ctx, patronID, itemID, now)
		}},
	}

	for _, step := range steps {
		if err := l.runStep(ctx, step.name, step.run); err != nil {
			return errors.Join(ErrCheckinIncomplete, err)
		}
	}

	l.logOperation(logMsgCheckinComplete,
		logAttrItemID, itemID,
		logAttrPatronID, patronID)

	return nil
}

// OpenLoans returns the patron's currently open loans.
func (l Ledger) OpenLoans(ctx context.Context, patronID string) ([]circulation.PatronLoan, error) {
	return l.patrons.OpenLoans(ctx, patronID)
}

// runStep executes one protocol step with bounded backoff retry.
// Only transient store failures are retried; business failures fail fast.
func (l Ledger) runStep(ctx context.Context, name string, run func(context.Context) error) error {
	backoff := retry.WithMaxRetries(l.retryAttempts, retry.NewExponential(l.retryBaseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if stepErr := run(ctx); stepErr != nil {
			if errors.Is(stepErr, circulation.ErrStore) {
				return retry.RetryableError(stepErr)
			}

			return stepErr
		}

		return nil
	})

	if err != nil && l.logger != nil {
		l.logger.Error(logMsgStepFailed, logAttrStep, name, logAttrError, err.Error())
	}

	return err
}

func (l Ledger) logOperation(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Info(msg, args...)
	}
}

// InspectionReport describes whether an item's three custody records agree.
type InspectionReport struct {
	ItemID    int64
	Available bool
	OpenLoan  *circulation.Loan
	Problems  []string
}

// Consistent reports whether the custody records agree: the item is either
// available with no open loan, or unavailable with exactly one open loan
// that also appears on the borrowing patron's side.
func (r InspectionReport) Consistent() bool {
	return len(r.Problems) == 0
}

// Inspect checks the custody records of an item against each other and
// reports any disagreement, e.g. the damage left behind by a partial
// checkout failure. It never modifies state.
func (l Ledger) Inspect(ctx context.Context, itemID int64) (InspectionReport, error) {
	item, err := l.catalog.Get(ctx, itemID)
	if err != nil {
		return InspectionReport{}, err
	}

	report := InspectionReport{ItemID: itemID, Available: item.Available}

	openLoan, loanErr := l.loans.OpenLoanFor(ctx, itemID)

	switch {
	case loanErr == nil:
		report.OpenLoan = &openLoan

		if item.Available {
			report.Problems = append(report.Problems, "item is marked available but has an open loan")
		}

		patronSide, patronErr := l.patrons.OpenLoans(ctx, openLoan.PatronID)
		if patronErr != nil {
			return InspectionReport{}, patronErr
		}

		if !containsLoan(patronSide, openLoan.ID) {
			report.Problems = append(report.Problems,
				fmt.Sprintf("open loan %s is missing from patron %s's loan set", openLoan.ID, openLoan.PatronID))
		}

	case errors.Is(loanErr, circulation.ErrNotFound):
		if !item.Available {
			report.Problems = append(report.Problems, "item is marked unavailable but has no open loan")
		}

	default:
		return InspectionReport{}, loanErr
	}

	return report, nil
}

func containsLoan(loans []circulation.PatronLoan, loanID string) bool {
	for _, loan := range loans {
		if loan.LoanID == loanID {
			return true
		}
	}

	return false
}
