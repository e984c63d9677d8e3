package search_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lendkit/circulate/search"
)

const scoreTolerance = 0.001

func Test_Similarity_IdenticalStringsScoreOne(t *testing.T) {
	for _, s := range []string{"Dune", "a", "", "The Left Hand of Darkness", "9780441172719"} {
		assert.InDelta(t, 1.0, search.Similarity(s, s), scoreTolerance)
	}
}

func Test_Similarity_DisjointStringsScoreZero(t *testing.T) {
	assert.InDelta(t, 0.0, search.Similarity("abc", "xyz"), scoreTolerance)
	assert.InDelta(t, 0.0, search.Similarity("Dune", ""), scoreTolerance)
	assert.InDelta(t, 0.0, search.Similarity("", "Dune"), scoreTolerance)
}

func Test_Similarity_IsSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Dune", "Dune Messiah"},
		{"MARTHA", "MARHTA"},
		{"Frank Herbert", "frank herbert"},
		{"9780441172719", "9780441172720"},
	}

	for _, pair := range pairs {
		assert.InDelta(t, search.Similarity(pair[0], pair[1]), search.Similarity(pair[1], pair[0]), scoreTolerance)
	}
}

func Test_Similarity_KnownValues(t *testing.T) {
	// reference values of the Jaro-Winkler metric
	testCases := []struct {
		a        string
		b        string
		expected float64
	}{
		{"MARTHA", "MARHTA", 0.961},
		{"DWAYNE", "DUANE", 0.840},
		{"DIXON", "DICKSONX", 0.813},
	}

	for _, tc := range testCases {
		t.Run(tc.a+"_"+tc.b, func(t *testing.T) {
			assert.InDelta(t, tc.expected, search.Similarity(tc.a, tc.b), scoreTolerance)
		})
	}
}

func Test_Similarity_PrefixAgreementBoostsScore(t *testing.T) {
	// same edit distance, but one pair shares the leading characters
	withPrefix := search.Similarity("prefixed", "prefixes")
	withoutPrefix := search.Similarity("xprefied", "sprefies")

	assert.Greater(t, withPrefix, withoutPrefix)
}

func Test_Similarity_StaysWithinBounds(t *testing.T) {
	pairs := [][2]string{
		{"Dune", "Dune Messiah"},
		{"a", "ab"},
		{"completely", "different"},
		{"", ""},
	}

	for _, pair := range pairs {
		score := search.Similarity(pair[0], pair[1])
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}
