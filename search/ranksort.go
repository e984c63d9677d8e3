package search

// SortScores orders a set of similarity scores ascending, in place, using a
// recursive quicksort with Hoare partitioning.
//
// The pivot is taken from the middle of the range, so the partition always
// shrinks and the recursion terminates even when every element is equal or
// the input is already sorted.
func SortScores(scores []float64) {
	quicksortScores(scores, 0, len(scores)-1)
}

func quicksortScores(scores []float64, lb, ub int) {
	if lb >= ub {
		return
	}

	p := partitionScores(scores, lb, ub)
	quicksortScores(scores, lb, p)
	quicksortScores(scores, p+1, ub)
}

func partitionScores(scores []float64, lb, ub int) int {
	pivot := scores[lb+(ub-lb)/2]
	i := lb - 1
	j := ub + 1

	for {
		for {
			i++
			if scores[i] >= pivot {
				break
			}
		}

		for {
			j--
			if scores[j] <= pivot {
				break
			}
		}

		if i >= j {
			return j
		}

		scores[i], scores[j] = scores[j], scores[i]
	}
}
