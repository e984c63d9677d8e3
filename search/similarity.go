package search

const (
	// winklerPrefixScale is the weight of the shared-prefix bonus.
	winklerPrefixScale = 0.1
	// winklerMaxPrefix bounds how many leading characters count towards the bonus.
	winklerMaxPrefix = 4
)

// Similarity computes the Jaro-Winkler closeness of two strings in [0, 1]:
// the base Jaro similarity (matching characters within a sliding window,
// adjusted by transpositions and weighted across both lengths) boosted by a
// bonus for shared leading characters.
//
// The function is pure and symmetric in its arguments. Identical strings
// score 1.0, strings with no characters in common score 0.0.
func Similarity(a, b string) float64 {
	jaro := jaroSimilarity([]rune(a), []rune(b))
	if jaro == 0 || jaro == 1 {
		return jaro
	}

	prefix := commonPrefixLen([]rune(a), []rune(b))

	return jaro + float64(prefix)*winklerPrefixScale*(1.0-jaro)
}

func jaroSimilarity(a, b []rune) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	// characters match when equal and at most window positions apart
	window := max(len(a), len(b))/2 - 1
	if window < 0 {
		window = 0
	}

	aMatched := make([]bool, len(a))
	bMatched := make([]bool, len(b))
	matches := 0

	for i := range a {
		low := max(i-window, 0)
		high := min(i+window+1, len(b))

		for j := low; j < high; j++ {
			if bMatched[j] || a[i] != b[j] {
				continue
			}

			aMatched[i] = true
			bMatched[j] = true
			matches++

			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	// transpositions: matched characters that line up in a different order
	transpositions := 0
	j := 0

	for i := range a {
		if !aMatched[i] {
			continue
		}

		for !bMatched[j] {
			j++
		}

		if a[i] != b[j] {
			transpositions++
		}

		j++
	}

	m := float64(matches)
	t := float64(transpositions) / 2.0

	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3.0
}

func commonPrefixLen(a, b []rune) int {
	limit := min(len(a), len(b), winklerMaxPrefix)

	prefix := 0
	for prefix < limit && a[prefix] == b[prefix] {
		prefix++
	}

	return prefix
}
