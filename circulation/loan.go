package circulation

import (
	"time"

	"github.com/google/uuid"
)

// Loan records one patron borrowing one item over an interval.
//
// The same loan is stored twice: once in the item-side loan index and once
// in the patron-side registry. Both rows carry the same ID so the two
// records can be matched up when checking consistency.
type Loan struct {
	ID           string
	ItemID       int64
	PatronID     string
	CheckedOutAt time.Time
	CheckedInAt  time.Time
}

// BuildLoan creates a new open Loan with a fresh identifier.
func BuildLoan(itemID int64, patronID string, checkedOutAt time.Time) Loan {
	return Loan{
		ID:           uuid.New().String(),
		ItemID:       itemID,
		PatronID:     patronID,
		CheckedOutAt: checkedOutAt.UTC(),
	}
}

// Open reports whether the loan has not been checked in yet.
func (l Loan) Open() bool {
	return l.CheckedInAt.IsZero()
}

// PatronLoan is one entry of a patron's open-loan listing, joined with the
// display fields of the borrowed item.
type PatronLoan struct {
	LoanID       string
	ItemID       int64
	Title        string
	Authors      string
	CheckedOutAt time.Time
}
