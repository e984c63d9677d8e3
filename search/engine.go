package search

import (
	"context"
	"errors"

	"github.com/lendkit/circulate/circulation"
)

const (
	// defaultThreshold is the minimum similarity a candidate must reach.
	defaultThreshold = 0.85

	logMsgSearchCompleted = "search completed"
	logAttrField          = "field"
	logAttrCandidates     = "candidate_count"
	logAttrScanned        = "scanned_count"
)

// ErrInvalidThreshold is returned when a threshold outside [0, 1] is configured.
var ErrInvalidThreshold = errors.New("match threshold must be between 0.0 and 1.0")

// CatalogScanner is the catalog surface the engine reads from.
// It is satisfied by sqlengine.CatalogStore.
type CatalogScanner interface {
	FindAvailable(ctx context.Context, field circulation.SearchField) ([]circulation.FieldProjection, error)
}

// Engine turns a free-text query into a ranked candidate list.
type Engine struct {
	catalog   CatalogScanner
	threshold float64
	logger    circulation.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine) error

// WithThreshold overrides the default similarity threshold of 0.85.
func WithThreshold(threshold float64) Option {
	return func(e *Engine) error {
		if threshold < 0.0 || threshold > 1.0 {
			return ErrInvalidThreshold
		}

		e.threshold = threshold

		return nil
	}
}

// WithLogger sets the logger for the engine.
func WithLogger(logger circulation.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// NewEngine creates a search Engine reading from the given catalog,
// with optional configuration.
func NewEngine(catalog CatalogScanner, options ...Option) (Engine, error) {
	engine := Engine{
		catalog:   catalog,
		threshold: defaultThreshold,
	}

	for _, option := range options {
		if err := option(&engine); err != nil {
			return Engine{}, err
		}
	}

	return engine, nil
}

// Search scores every available item's field value against the query and
// returns the candidates that clear the threshold, best match first.
// Candidates with the same score stay adjacent, in catalog scan order.
//
// An empty result means "no match found" and is not an error.
// An empty query is rejected with circulation.ErrValidation.
func (e Engine) Search(ctx context.Context, field circulation.SearchField, query string) ([]circulation.Candidate, error) {
	if query == "" {
		return nil, circulation.ErrValidation
	}

	projections, err := e.catalog.FindAvailable(ctx, field)
	if err != nil {
		return nil, err
	}

	// group surviving candidates by exact score, keeping scan order
	// both across first-seen scores and inside each group
	groups := make(map[float64][]circulation.Candidate)
	scores := make([]float64, 0)

	for _, p := range projections {
		score := Similarity(query, p.FieldValue)
		if score < e.threshold {
			continue
		}

		if _, seen := groups[score]; !seen {
			scores = append(scores, score)
		}

		groups[score] = append(groups[score], circulation.Candidate{
			ItemID:     p.ItemID,
			Title:      p.Title,
			Authors:    p.Authors,
			ExternalID: p.ExternalID,
			Score:      score,
		})
	}

	if len(scores) == 0 {
		e.logSearch(field, len(projections), 0)
		return nil, nil
	}

	SortScores(scores)

	ranked := make([]circulation.Candidate, 0, len(projections))
	for i := len(scores) - 1; i >= 0; i-- {
		ranked = append(ranked, groups[scores[i]]...)
	}

	e.logSearch(field, len(projections), len(ranked))

	return ranked, nil
}

func (e Engine) logSearch(field circulation.SearchField, scanned int, candidates int) {
	if e.logger != nil {
		e.logger.Info(logMsgSearchCompleted,
			logAttrField, string(field),
			logAttrScanned, scanned,
			logAttrCandidates, candidates)
	}
}
