// Package importer populates the catalog once from a delimited export.
//
// Import is best effort, matching how the catalog data usually arrives:
// header skipped, ragged rows tolerated, rows that cannot be mapped to an
// item logged and dropped rather than failing the run.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"

	"github.com/lendkit/circulate/circulation"
)

// expected column layout of the export
const (
	fieldCount         = 12
	colBookID          = 0
	colTitle           = 1
	colAuthors         = 2
	colAverageRating   = 3
	colISBN            = 4
	colISBN13          = 5
	colLanguageCode    = 6
	colNumPages        = 7
	colRatingsCount    = 8
	colTextReviews     = 9
	colPublicationDate = 10
	colPublisher       = 11
)

const (
	logMsgRowSkipped       = "import row skipped"
	logMsgInsertFailed     = "import insert failed"
	logMsgImportComplete   = "catalog import complete"
	logMsgAlreadyPopulated = "catalog already populated, skipping import"
	logAttrError           = "error"
	logAttrLine            = "line"
	logAttrImported        = "imported_count"
	logAttrSkipped         = "skipped_count"
)

// ErrReadingSourceFailed wraps a failure to read the import source.
var ErrReadingSourceFailed = errors.New("reading import source failed")

// CatalogWriter is the catalog surface the importer needs.
// It is satisfied by sqlengine.CatalogStore.
type CatalogWriter interface {
	IsEmpty(ctx context.Context) (bool, error)
	Insert(ctx context.Context, item circulation.Item) error
}

// Importer performs the one-time catalog population.
type Importer struct {
	catalog CatalogWriter
	logger  circulation.Logger
}

// NewImporter creates an Importer writing to the given catalog.
// The logger may be nil.
func NewImporter(catalog CatalogWriter, logger circulation.Logger) Importer {
	return Importer{catalog: catalog, logger: logger}
}

// Import reads the delimited source and inserts every parseable row as an
// available item. It is a no-op returning (0, nil) when the catalog already
// holds items. Returns the number of items imported.
func (imp Importer) Import(ctx context.Context, source io.Reader) (int, error) {
	empty, err := imp.catalog.IsEmpty(ctx)
	if err != nil {
		return 0, err
	}

	if !empty {
		imp.logInfo(logMsgAlreadyPopulated)
		return 0, nil
	}

	reader := csv.NewReader(source)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	imported := 0
	skipped := 0
	line := 0

	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}

		if readErr != nil {
			return imported, errors.Join(ErrReadingSourceFailed, readErr)
		}

		line++
		if line == 1 {
			continue // header row
		}

		item, ok := itemFromRecord(record)
		if !ok {
			skipped++
			imp.logWarn(logMsgRowSkipped, logAttrLine, line)

			continue
		}

		if insertErr := imp.catalog.Insert(ctx, item); insertErr != nil {
			skipped++
			imp.logWarn(logMsgInsertFailed, logAttrLine, line, logAttrError, insertErr.Error())

			continue
		}

		imported++
	}

	imp.logInfo(logMsgImportComplete, logAttrImported, imported, logAttrSkipped, skipped)

	return imported, nil
}

// itemFromRecord maps one export row to an Item. Rows with extra empty
// columns are compacted first; anything that still does not fit the
// expected layout, or has an unparseable identifier, is rejected.
func itemFromRecord(record []string) (circulation.Item, bool) {
	if len(record) != fieldCount {
		record = dropEmptyFields(record)
	}

	if len(record) != fieldCount {
		return circulation.Item{}, false
	}

	id, parseErr := strconv.ParseInt(record[colBookID], 10, 64)
	if parseErr != nil {
		return circulation.Item{}, false
	}

	return circulation.Item{
		ID:      id,
		Title:   record[colTitle],
		Authors: record[colAuthors],
		ISBN:    record[colISBN],
		ISBN13:  record[colISBN13],
		Metadata: circulation.ItemMetadata{
			LanguageCode:    record[colLanguageCode],
			PageCount:       record[colNumPages],
			AverageRating:   record[colAverageRating],
			RatingsCount:    record[colRatingsCount],
			TextReviews:     record[colTextReviews],
			PublicationDate: record[colPublicationDate],
			Publisher:       record[colPublisher],
		},
		Available: true,
	}, true
}

func dropEmptyFields(record []string) []string {
	compacted := make([]string, 0, len(record))

	for _, field := range record {
		if field != "" {
			compacted = append(compacted, field)
		}
	}

	return compacted
}

func (imp Importer) logInfo(msg string, args ...any) {
	if imp.logger != nil {
		imp.logger.Info(msg, args...)
	}
}

func (imp Importer) logWarn(msg string, args ...any) {
	if imp.logger != nil {
		imp.logger.Warn(msg, args...)
	}
}
