package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lendkit/circulate/circulation"
	"github.com/lendkit/circulate/ledger"
	"github.com/lendkit/circulate/testutil/enginetest"
)

func newSQLiteLedger(t *testing.T) (ledger.Ledger, ledger.CatalogStore) {
	t.Helper()

	catalog, patrons, loans := enginetest.NewSQLiteStores(t)
	enginetest.GivenItem(t, catalog, 1, "Dune")

	l, err := ledger.NewLedger(catalog, loans, patrons)
	require.NoError(t, err)

	return l, catalog
}

func Test_Ledger_SQLite_FullCheckoutCheckinCycle(t *testing.T) {
	// arrange
	l, catalog := newSQLiteLedger(t)
	ctx := context.Background()

	// act
	err := l.Checkout(ctx, 1, "gwen")

	// assert - item unavailable, loan visible on the patron side
	require.NoError(t, err)

	item, err := catalog.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, item.Available)

	open, err := l.OpenLoans(ctx, "gwen")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, int64(1), open[0].ItemID)
	assert.Equal(t, "Dune", open[0].Title)

	report, err := l.Inspect(ctx, 1)
	require.NoError(t, err)
	assert.True(t, report.Consistent())

	// act - return the item
	err = l.Checkin(ctx, 1, "gwen")

	// assert - item available again, no open loans left
	require.NoError(t, err)

	item, err = catalog.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, item.Available)

	open, err = l.OpenLoans(ctx, "gwen")
	require.NoError(t, err)
	assert.Empty(t, open)

	report, err = l.Inspect(ctx, 1)
	require.NoError(t, err)
	assert.True(t, report.Consistent())
}

func Test_Ledger_SQLite_DoubleCheckout_LeavesItemUnavailable(t *testing.T) {
	// arrange
	l, catalog := newSQLiteLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Checkout(ctx, 1, "gwen"))

	// act
	err := l.Checkout(ctx, 1, "miles")

	// assert
	assert.ErrorIs(t, err, ledger.ErrCheckoutIncomplete)
	assert.ErrorIs(t, err, circulation.ErrConstraint)

	item, getErr := catalog.Get(ctx, 1)
	require.NoError(t, getErr)
	assert.False(t, item.Available)

	// the first patron's loan is untouched
	open, loansErr := l.OpenLoans(ctx, "gwen")
	require.NoError(t, loansErr)
	require.Len(t, open, 1)

	open, loansErr = l.OpenLoans(ctx, "miles")
	require.NoError(t, loansErr)
	assert.Empty(t, open)
}

func Test_Ledger_SQLite_CheckinWithoutLoan_ReportsNotFound(t *testing.T) {
	// arrange
	l, _ := newSQLiteLedger(t)
	ctx := context.Background()

	// act
	err := l.Checkin(ctx, 1, "gwen")

	// assert
	assert.ErrorIs(t, err, ledger.ErrCheckinIncomplete)
	assert.ErrorIs(t, err, circulation.ErrNotFound)
}

func Test_Ledger_SQLite_ReCheckoutAfterCheckin(t *testing.T) {
	// arrange
	l, _ := newSQLiteLedger(t)
	ctx := context.Background()
	require.NoError(t, l.Checkout(ctx, 1, "gwen"))
	require.NoError(t, l.Checkin(ctx, 1, "gwen"))

	// act - a different patron borrows the same item
	err := l.Checkout(ctx, 1, "miles")

	// assert
	require.NoError(t, err)

	open, err := l.OpenLoans(ctx, "miles")
	require.NoError(t, err)
	require.Len(t, open, 1)

	report, err := l.Inspect(ctx, 1)
	require.NoError(t, err)
	assert.True(t, report.Consistent())
	require.NotNil(t, report.OpenLoan)
	assert.Equal(t, "miles", report.OpenLoan.PatronID)
}
