package importer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lendkit/circulate/circulation"
	"github.com/lendkit/circulate/importer"
)

const exportHeader = "bookID,title,authors,average_rating,isbn,isbn13,language_code,num_pages,ratings_count,text_reviews_count,publication_date,publisher\n"

// fakeCatalogWriter records inserted items in memory.
type fakeCatalogWriter struct {
	items      []circulation.Item
	empty      bool
	insertErrs map[int64]error
}

func (w *fakeCatalogWriter) IsEmpty(context.Context) (bool, error) {
	return w.empty, nil
}

func (w *fakeCatalogWriter) Insert(_ context.Context, item circulation.Item) error {
	if err, found := w.insertErrs[item.ID]; found {
		return err
	}

	w.items = append(w.items, item)

	return nil
}

func Test_Import_MapsExportRowsToAvailableItems(t *testing.T) {
	// arrange
	source := exportHeader +
		"1,Dune,Frank Herbert,4.25,0441172717,9780441172719,eng,412,700000,12000,6/1/1965,Chilton Books\n" +
		"2,Dune Messiah,Frank Herbert,3.89,0593098234,9780593098233,eng,256,150000,4000,7/15/1969,Putnam\n"
	catalog := &fakeCatalogWriter{empty: true}
	imp := importer.NewImporter(catalog, nil)

	// act
	imported, err := imp.Import(context.Background(), strings.NewReader(source))

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	require.Len(t, catalog.items, 2)

	first := catalog.items[0]
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "Dune", first.Title)
	assert.Equal(t, "Frank Herbert", first.Authors)
	assert.Equal(t, "9780441172719", first.ISBN13)
	assert.Equal(t, "412", first.Metadata.PageCount)
	assert.Equal(t, "Chilton Books", first.Metadata.Publisher)
	assert.True(t, first.Available)
}

func Test_Import_SkipsWhenCatalogAlreadyPopulated(t *testing.T) {
	// arrange
	source := exportHeader +
		"1,Dune,Frank Herbert,4.25,0441172717,9780441172719,eng,412,700000,12000,6/1/1965,Chilton Books\n"
	catalog := &fakeCatalogWriter{empty: false}
	imp := importer.NewImporter(catalog, nil)

	// act
	imported, err := imp.Import(context.Background(), strings.NewReader(source))

	// assert
	require.NoError(t, err)
	assert.Zero(t, imported)
	assert.Empty(t, catalog.items)
}

func Test_Import_CompactsRowsWithExtraEmptyColumns(t *testing.T) {
	// arrange - the export occasionally pads rows with empty columns
	source := exportHeader +
		"1,Dune,Frank Herbert,4.25,0441172717,9780441172719,,eng,412,700000,12000,6/1/1965,Chilton Books\n"
	catalog := &fakeCatalogWriter{empty: true}
	imp := importer.NewImporter(catalog, nil)

	// act
	imported, err := imp.Import(context.Background(), strings.NewReader(source))

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	require.Len(t, catalog.items, 1)
	assert.Equal(t, "eng", catalog.items[0].Metadata.LanguageCode)
}

func Test_Import_DropsRowsThatCannotBeMapped(t *testing.T) {
	// arrange - a short row and a row with a non-numeric identifier
	source := exportHeader +
		"1,Dune,Frank Herbert\n" +
		"not-a-number,Dune Messiah,Frank Herbert,3.89,0593098234,9780593098233,eng,256,150000,4000,7/15/1969,Putnam\n" +
		"3,Children of Dune,Frank Herbert,3.91,0593098250,9780593098257,eng,444,120000,3000,4/1/1976,Putnam\n"
	catalog := &fakeCatalogWriter{empty: true}
	imp := importer.NewImporter(catalog, nil)

	// act
	imported, err := imp.Import(context.Background(), strings.NewReader(source))

	// assert - only the well-formed row survives
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	require.Len(t, catalog.items, 1)
	assert.Equal(t, int64(3), catalog.items[0].ID)
}

func Test_Import_ContinuesPastFailedInserts(t *testing.T) {
	// arrange
	source := exportHeader +
		"1,Dune,Frank Herbert,4.25,0441172717,9780441172719,eng,412,700000,12000,6/1/1965,Chilton Books\n" +
		"2,Dune Messiah,Frank Herbert,3.89,0593098234,9780593098233,eng,256,150000,4000,7/15/1969,Putnam\n"
	catalog := &fakeCatalogWriter{
		empty:      true,
		insertErrs: map[int64]error{1: circulation.ErrConstraint},
	}
	imp := importer.NewImporter(catalog, nil)

	// act
	imported, err := imp.Import(context.Background(), strings.NewReader(source))

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	require.Len(t, catalog.items, 1)
	assert.Equal(t, int64(2), catalog.items[0].ID)
}
