// Package search resolves noisy free-text queries to catalog entries.
//
// It scores every available item's field value against the query with a
// Jaro-Winkler similarity metric, drops candidates below a match threshold,
// groups ties by exact score and emits the groups best match first.
package search
