package sqlengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lendkit/circulate/circulation"
	"github.com/lendkit/circulate/testutil/enginetest"
)

func Test_PatronRegistry_Ensure_IsIdempotent(t *testing.T) {
	// arrange
	_, patrons, _ := enginetest.NewSQLiteStores(t)
	ctx := context.Background()

	// act / assert - creating the same patron twice is not an error
	require.NoError(t, patrons.Ensure(ctx, "gwen"))
	require.NoError(t, patrons.Ensure(ctx, "gwen"))
}

func Test_PatronRegistry_RecordLoan_RejectsSecondOpenLoanForSameItem(t *testing.T) {
	// arrange
	_, patrons, _ := enginetest.NewSQLiteStores(t)
	ctx := context.Background()
	require.NoError(t, patrons.Ensure(ctx, "gwen"))

	first := circulation.BuildLoan(1, "gwen", time.Now())
	require.NoError(t, patrons.RecordLoan(ctx, first))

	// act
	err := patrons.RecordLoan(ctx, circulation.BuildLoan(1, "gwen", time.Now()))

	// assert
	assert.ErrorIs(t, err, circulation.ErrConstraint)
}

func Test_PatronRegistry_RecordLoan_AllowsNewLoanAfterCheckin(t *testing.T) {
	// arrange
	_, patrons, _ := enginetest.NewSQLiteStores(t)
	ctx := context.Background()
	require.NoError(t, patrons.Ensure(ctx, "gwen"))
	require.NoError(t, patrons.RecordLoan(ctx, circulation.BuildLoan(1, "gwen", time.Now())))
	require.NoError(t, patrons.CloseLoan(ctx, "gwen", 1, time.Now()))

	// act
	err := patrons.RecordLoan(ctx, circulation.BuildLoan(1, "gwen", time.Now()))

	// assert
	require.NoError(t, err)
}

func Test_PatronRegistry_OpenLoans_JoinsItemDisplayFields(t *testing.T) {
	// arrange
	catalog, patrons, _ := enginetest.NewSQLiteStores(t)
	ctx := context.Background()
	enginetest.GivenItem(t, catalog, 1, "Dune")
	enginetest.GivenItem(t, catalog, 2, "Dune Messiah")
	require.NoError(t, patrons.Ensure(ctx, "gwen"))

	older := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, patrons.RecordLoan(ctx, circulation.BuildLoan(2, "gwen", newer)))
	require.NoError(t, patrons.RecordLoan(ctx, circulation.BuildLoan(1, "gwen", older)))

	// act
	open, err := patrons.OpenLoans(ctx, "gwen")

	// assert - oldest checkout first, item fields joined in
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, int64(1), open[0].ItemID)
	assert.Equal(t, "Dune", open[0].Title)
	assert.Equal(t, "Test Author", open[0].Authors)
	assert.Equal(t, int64(2), open[1].ItemID)
	assert.Equal(t, "Dune Messiah", open[1].Title)
}

func Test_PatronRegistry_OpenLoans_ExcludesClosedLoans(t *testing.T) {
	// arrange
	catalog, patrons, _ := enginetest.NewSQLiteStores(t)
	ctx := context.Background()
	enginetest.GivenItem(t, catalog, 1, "Dune")
	require.NoError(t, patrons.Ensure(ctx, "gwen"))
	require.NoError(t, patrons.RecordLoan(ctx, circulation.BuildLoan(1, "gwen", time.Now())))
	require.NoError(t, patrons.CloseLoan(ctx, "gwen", 1, time.Now()))

	// act
	open, err := patrons.OpenLoans(ctx, "gwen")

	// assert
	require.NoError(t, err)
	assert.Empty(t, open)
}

func Test_PatronRegistry_CloseLoan_WithoutOpenLoan_ReportsNotFound(t *testing.T) {
	// arrange
	_, patrons, _ := enginetest.NewSQLiteStores(t)
	ctx := context.Background()
	require.NoError(t, patrons.Ensure(ctx, "gwen"))

	// act
	err := patrons.CloseLoan(ctx, "gwen", 1, time.Now())

	// assert
	assert.ErrorIs(t, err, circulation.ErrNotFound)
}
