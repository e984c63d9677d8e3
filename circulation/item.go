package circulation

// Item is one lendable catalog entry.
//
// ID is the stable catalog identifier. ISBN13 doubles as the external
// identifier surfaced by search. Available is flipped exclusively by the
// circulation ledger; items are never deleted.
type Item struct {
	ID        int64
	Title     string
	Authors   string
	ISBN      string
	ISBN13    string
	Metadata  ItemMetadata
	Available bool
}

// ItemMetadata holds the descriptive classification fields of an item.
// Every field is optional; bulk import regularly leaves them empty.
// The storage engine persists the whole struct as one JSON document.
type ItemMetadata struct {
	LanguageCode    string `json:"language_code,omitempty"`
	PageCount       string `json:"num_pages,omitempty"`
	AverageRating   string `json:"average_rating,omitempty"`
	RatingsCount    string `json:"ratings_count,omitempty"`
	TextReviews     string `json:"text_reviews,omitempty"`
	PublicationDate string `json:"publication_date,omitempty"`
	Publisher       string `json:"publisher,omitempty"`
}

// SearchField names a catalog column that can be matched against a query.
type SearchField string

const (
	FieldTitle      SearchField = "title"
	FieldAuthors    SearchField = "authors"
	FieldExternalID SearchField = "isbn13"
)

// Valid reports whether the field is one of the searchable columns.
// The storage engine rejects anything else with ErrValidation, which also
// keeps arbitrary column names out of the generated SQL.
func (f SearchField) Valid() bool {
	switch f {
	case FieldTitle, FieldAuthors, FieldExternalID:
		return true
	default:
		return false
	}
}

// FieldProjection is the row shape a catalog field scan returns: the value
// of the searched field plus the display fields and the item identifier.
type FieldProjection struct {
	FieldValue string
	Title      string
	Authors    string
	ExternalID string
	ItemID     int64
}

// Candidate is an item surfaced by the search engine as a possible match,
// together with its similarity score against the query.
type Candidate struct {
	ItemID     int64
	Title      string
	Authors    string
	ExternalID string
	Score      float64
}
