package sqlengine

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/lendkit/circulate/circulation"
)

const (
	actionOpenItemLoan  = "open item loan"
	actionCloseItemLoan = "close item loan"
	actionOpenLoanFor   = "find open item loan"
	actionLoanHistory   = "item loan history"
)

// LoanIndex holds the item-side loan history: who borrowed each item, when,
// and whether it came back.
type LoanIndex struct {
	e engine
}

// OpenLoan records a new open loan on the item side.
// Returns circulation.ErrConstraint if the item already has an open loan;
// an item cannot be checked out twice.
func (s LoanIndex) OpenLoan(ctx context.Context, loan circulation.Loan) error {
	builder := s.e.builder()

	openLoanForItem := builder.
		From(s.e.tables.itemLoans).
		Select(goqu.V(1)).
		Where(
			goqu.C(colItemID).Eq(loan.ItemID),
			goqu.C(colCheckedInAt).IsNull(),
		)

	insertStmt := builder.
		Insert(s.e.tables.itemLoans).
		Cols(colLoanID, colItemID, colPatronID, colCheckedOutAt, colCheckedInAt).
		FromQuery(
			builder.
				Select(
					goqu.V(loan.ID),
					goqu.V(loan.ItemID),
					goqu.V(loan.PatronID),
					goqu.V(loan.CheckedOutAt),
					goqu.V(nil),
				).
				Where(goqu.L("NOT EXISTS ?", openLoanForItem)),
		)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return s.e.buildError(actionOpenItemLoan, toSQLErr)
	}

	rowsAffected, duration, execErr := s.e.executeStatement(ctx, sqlQuery, actionOpenItemLoan)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return circulation.ErrConstraint
	}

	s.e.logOperation(
		actionOpenItemLoan,
		logAttrItemID, loan.ItemID,
		logAttrPatronID, loan.PatronID,
		logAttrDurationMS, s.e.durationToMilliseconds(duration))

	return nil
}

// CloseLoan closes the open loan matching the item and patron.
// Returns circulation.ErrNotFound if none matches.
func (s LoanIndex) CloseLoan(ctx context.Context, itemID int64, patronID string, checkedInAt time.Time) error {
	updateStmt := s.e.builder().
		Update(s.e.tables.itemLoans).
		Set(goqu.Record{colCheckedInAt: checkedInAt.UTC()}).
		Where(
			goqu.C(colItemID).Eq(itemID),
			goqu.C(colPatronID).Eq(patronID),
			goqu.C(colCheckedInAt).IsNull(),
		)

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return s.e.buildError(actionCloseItemLoan, toSQLErr)
	}

	rowsAffected, duration, execErr := s.e.executeStatement(ctx, sqlQuery, actionCloseItemLoan)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return circulation.ErrNotFound
	}

	s.e.logOperation(
		actionCloseItemLoan,
		logAttrItemID, itemID,
		logAttrPatronID, patronID,
		logAttrDurationMS, s.e.durationToMilliseconds(duration))

	return nil
}

// OpenLoanFor returns the item's open loan if one exists,
// circulation.ErrNotFound otherwise.
func (s LoanIndex) OpenLoanFor(ctx context.Context, itemID int64) (circulation.Loan, error) {
	selectStmt := s.e.builder().
		From(s.e.tables.itemLoans).
		Select(goqu.C(colLoanID), goqu.C(colPatronID), goqu.C(colCheckedOutAt)).
		Where(
			goqu.C(colItemID).Eq(itemID),
			goqu.C(colCheckedInAt).IsNull(),
		)

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return circulation.Loan{}, s.e.buildError(actionOpenLoanFor, toSQLErr)
	}

	rows, _, queryErr := s.e.executeQuery(ctx, sqlQuery, actionOpenLoanFor)
	if queryErr != nil {
		return circulation.Loan{}, queryErr
	}
	defer s.e.closeRows(rows)

	if !rows.Next() {
		return circulation.Loan{}, circulation.ErrNotFound
	}

	loan := circulation.Loan{ItemID: itemID}

	if scanErr := rows.Scan(&loan.ID, &loan.PatronID, &loan.CheckedOutAt); scanErr != nil {
		return circulation.Loan{}, s.e.scanError(scanErr)
	}

	return loan, nil
}

// History returns every loan ever recorded for the item, oldest first.
func (s LoanIndex) History(ctx context.Context, itemID int64) ([]circulation.Loan, error) {
	selectStmt := s.e.builder().
		From(s.e.tables.itemLoans).
		Select(goqu.C(colLoanID), goqu.C(colPatronID), goqu.C(colCheckedOutAt), goqu.C(colCheckedInAt)).
		Where(goqu.C(colItemID).Eq(itemID)).
		Order(goqu.I(colCheckedOutAt).Asc())

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return nil, s.e.buildError(actionLoanHistory, toSQLErr)
	}

	rows, duration, queryErr := s.e.executeQuery(ctx, sqlQuery, actionLoanHistory)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.e.closeRows(rows)

	loans := make([]circulation.Loan, 0)

	for rows.Next() {
		loan := circulation.Loan{ItemID: itemID}
		var checkedInAt sql.NullTime

		if scanErr := rows.Scan(&loan.ID, &loan.PatronID, &loan.CheckedOutAt, &checkedInAt); scanErr != nil {
			return nil, s.e.scanError(scanErr)
		}

		if checkedInAt.Valid {
			loan.CheckedInAt = checkedInAt.Time
		}

		loans = append(loans, loan)
	}

	s.e.logOperation(
		actionLoanHistory,
		logAttrItemID, itemID,
		logAttrRowCount, len(loans),
		logAttrDurationMS, s.e.durationToMilliseconds(duration))

	return loans, nil
}
