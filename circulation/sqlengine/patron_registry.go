package sqlengine

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/lendkit/circulate/circulation"
)

const (
	actionEnsurePatron    = "ensure patron"
	actionRecordLoan      = "record patron loan"
	actionOpenLoans       = "list patron open loans"
	actionClosePatronLoan = "close patron loan"

	aliasPatronLoans = "pl"
	aliasItems       = "i"
)

// PatronRegistry holds one record per patron plus the patron-side copy of
// that patron's loans.
type PatronRegistry struct {
	e engine
}

// Ensure creates the patron record if it does not exist yet.
// Creating an existing patron is not an error; the call is idempotent.
func (s PatronRegistry) Ensure(ctx context.Context, patronID string) error {
	builder := s.e.builder()

	samePatron := builder.
		From(s.e.tables.patrons).
		Select(goqu.V(1)).
		Where(goqu.C(colID).Eq(patronID))

	insertStmt := builder.
		Insert(s.e.tables.patrons).
		Cols(colID).
		FromQuery(
			builder.
				Select(goqu.V(patronID)).
				Where(goqu.L("NOT EXISTS ?", samePatron)),
		)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return s.e.buildError(actionEnsurePatron, toSQLErr)
	}

	// zero rows affected means the patron already existed, which is fine
	rowsAffected, duration, execErr := s.e.executeStatement(ctx, sqlQuery, actionEnsurePatron)
	if execErr != nil {
		return execErr
	}

	s.e.logOperation(
		actionEnsurePatron,
		logAttrPatronID, patronID,
		"created", rowsAffected > 0,
		logAttrDurationMS, s.e.durationToMilliseconds(duration))

	return nil
}

// RecordLoan writes the patron-side record of a new open loan.
// Returns circulation.ErrConstraint if the patron already has an open loan
// for the same item.
func (s PatronRegistry) RecordLoan(ctx context.Context, loan circulation.Loan) error {
	builder := s.e.builder()

	sameOpenLoan := builder.
		From(s.e.tables.patronLoans).
		Select(goqu.V(1)).
		Where(
			goqu.C(colPatronID).Eq(loan.PatronID),
			goqu.C(colItemID).Eq(loan.ItemID),
			goqu.C(colCheckedInAt).IsNull(),
		)

	insertStmt := builder.
		Insert(s.e.tables.patronLoans).
		Cols(colLoanID, colPatronID, colItemID, colCheckedOutAt, colCheckedInAt).
		FromQuery(
			builder.
				Select(
					goqu.V(loan.ID),
					goqu.V(loan.PatronID),
					goqu.V(loan.ItemID),
					goqu.V(loan.CheckedOutAt),
					goqu.V(nil),
				).
				Where(goqu.L("NOT EXISTS ?", sameOpenLoan)),
		)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return s.e.buildError(actionRecordLoan, toSQLErr)
	}

	rowsAffected, duration, execErr := s.e.executeStatement(ctx, sqlQuery, actionRecordLoan)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return circulation.ErrConstraint
	}

	s.e.logOperation(
		actionRecordLoan,
		logAttrPatronID, loan.PatronID,
		logAttrItemID, loan.ItemID,
		logAttrDurationMS, s.e.durationToMilliseconds(duration))

	return nil
}

// OpenLoans returns the patron's currently open loans joined with the
// display fields of the borrowed items, oldest checkout first.
func (s PatronRegistry) OpenLoans(ctx context.Context, patronID string) ([]circulation.PatronLoan, error) {
	selectStmt := s.e.builder().
		From(goqu.T(s.e.tables.patronLoans).As(aliasPatronLoans)).
		Join(
			goqu.T(s.e.tables.items).As(aliasItems),
			goqu.On(goqu.I(aliasItems+"."+colID).Eq(goqu.I(aliasPatronLoans+"."+colItemID))),
		).
		Select(
			goqu.I(aliasPatronLoans+"."+colLoanID),
			goqu.I(aliasPatronLoans+"."+colItemID),
			goqu.I(aliasItems+"."+colTitle),
			goqu.I(aliasItems+"."+colAuthors),
			goqu.I(aliasPatronLoans+"."+colCheckedOutAt),
		).
		Where(
			goqu.I(aliasPatronLoans+"."+colPatronID).Eq(patronID),
			goqu.I(aliasPatronLoans+"."+colCheckedInAt).IsNull(),
		).
		Order(goqu.I(aliasPatronLoans + "." + colCheckedOutAt).Asc())

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return nil, s.e.buildError(actionOpenLoans, toSQLErr)
	}

	rows, duration, queryErr := s.e.executeQuery(ctx, sqlQuery, actionOpenLoans)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.e.closeRows(rows)

	loans := make([]circulation.PatronLoan, 0)

	for rows.Next() {
		var loan circulation.PatronLoan
		var checkedOutAt time.Time

		if scanErr := rows.Scan(&loan.LoanID, &loan.ItemID, &loan.Title, &loan.Authors, &checkedOutAt); scanErr != nil {
			return nil, s.e.scanError(scanErr)
		}

		loan.CheckedOutAt = checkedOutAt
		loans = append(loans, loan)
	}

	s.e.logOperation(
		actionOpenLoans,
		logAttrPatronID, patronID,
		logAttrRowCount, len(loans),
		logAttrDurationMS, s.e.durationToMilliseconds(duration))

	return loans, nil
}

// CloseLoan marks the patron's open loan for the given item as checked in.
// Returns circulation.ErrNotFound if no matching open loan exists.
func (s PatronRegistry) CloseLoan(ctx context.Context, patronID string, itemID int64, checkedInAt time.Time) error {
	updateStmt := s.e.builder().
		Update(s.e.tables.patronLoans).
		Set(goqu.Record{colCheckedInAt: checkedInAt.UTC()}).
		Where(
			goqu.C(colPatronID).Eq(patronID),
			goqu.C(colItemID).Eq(itemID),
			goqu.C(colCheckedInAt).IsNull(),
		)

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return s.e.buildError(actionClosePatronLoan, toSQLErr)
	}

	rowsAffected, duration, execErr := s.e.executeStatement(ctx, sqlQuery, actionClosePatronLoan)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return circulation.ErrNotFound
	}

	s.e.logOperation(
		actionClosePatronLoan,
		logAttrPatronID, patronID,
		logAttrItemID, itemID,
		logAttrDurationMS, s.e.durationToMilliseconds(duration))

	return nil
}
