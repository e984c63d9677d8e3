package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lendkit/circulate/ledger"
	"github.com/lendkit/circulate/search"
	"github.com/lendkit/circulate/testutil/enginetest"
)

func newTestSession(t *testing.T, input string) (*session, *bytes.Buffer) {
	t.Helper()

	catalog, patrons, loans := enginetest.NewSQLiteStores(t)
	enginetest.GivenItem(t, catalog, 1, "Dune")

	engine, err := search.NewEngine(catalog)
	require.NoError(t, err)

	circLedger, err := ledger.NewLedger(catalog, loans, patrons)
	require.NoError(t, err)

	out := &bytes.Buffer{}

	return &session{
		catalog: catalog,
		patrons: patrons,
		engine:  engine,
		ledger:  circLedger,
		in:      bufio.NewReader(strings.NewReader(input)),
		out:     out,
	}, out
}

func Test_SessionRun_EndsWhenInputIsExhausted(t *testing.T) {
	// arrange - input ends right after the patron id
	s, out := newTestSession(t, "gwen\n")

	// act
	err := s.run(context.Background())

	// assert - exhausted input ends the session like menu option 4
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Please come again.")
}

func Test_SessionRun_RetriesInvalidSelectionsBeforeInputEnds(t *testing.T) {
	// arrange - a non-numeric and an out-of-range selection, then nothing
	s, out := newTestSession(t, "gwen\nbogus\n99\n")

	// act
	err := s.run(context.Background())

	// assert - one message per bad selection, then a clean exit
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out.String(), "Please provide a valid input."))
	assert.Contains(t, out.String(), "Please come again.")
}

func Test_SessionRun_EndsMidDialogWhenInputIsExhausted(t *testing.T) {
	// arrange - input runs out inside the checkout dialog
	s, out := newTestSession(t, "gwen\n1\ntitle\n")

	// act
	err := s.run(context.Background())

	// assert
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Please come again.")
}

func Test_SessionRun_ChecksOutAndLeaves(t *testing.T) {
	// arrange - full scripted dialog: search by title, pick the match, leave
	s, out := newTestSession(t, "gwen\n1\ntitle\nDune\n1\n4\n")

	// act
	err := s.run(context.Background())

	// assert
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Item successfully checked out.")
	assert.Contains(t, out.String(), "Please come again.")
}

func Test_SessionRun_RequiresAPatronID(t *testing.T) {
	s, _ := newTestSession(t, "")

	err := s.run(context.Background())

	assert.Error(t, err)
}
