package sqlengine

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"
	jsoniter "github.com/json-iterator/go"

	"github.com/lendkit/circulate/circulation"
)

const (
	actionFindAvailable   = "find available items"
	actionInsertItem      = "insert item"
	actionSetAvailability = "set item availability"
	actionGetItem         = "get item"
	actionIsEmpty         = "catalog empty probe"
	actionNextID          = "next item id"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// CatalogStore holds one record per lendable item.
//
// Search never sees checked-out items: FindAvailable only returns rows with
// the availability flag set. The flag itself is flipped exclusively through
// SetAvailability by the circulation ledger.
type CatalogStore struct {
	e engine
}

// FindAvailable returns the projection of the requested field plus the
// display fields and the identifier of every available item, in catalog
// scan order. An unknown field is rejected with circulation.ErrValidation.
func (s CatalogStore) FindAvailable(ctx context.Context, field circulation.SearchField) ([]circulation.FieldProjection, error) {
	if !field.Valid() {
		return nil, circulation.ErrValidation
	}

	selectStmt := s.e.builder().
		From(s.e.tables.items).
		Select(goqu.C(string(field)), goqu.C(colTitle), goqu.C(colAuthors), goqu.C(colISBN13), goqu.C(colID)).
		Where(goqu.C(colAvailable).Eq(true)).
		Order(goqu.I(colID).Asc())

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return nil, s.e.buildError(actionFindAvailable, toSQLErr)
	}

	rows, duration, queryErr := s.e.executeQuery(ctx, sqlQuery, actionFindAvailable)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.e.closeRows(rows)

	projections := make([]circulation.FieldProjection, 0)

	for rows.Next() {
		var p circulation.FieldProjection

		if scanErr := rows.Scan(&p.FieldValue, &p.Title, &p.Authors, &p.ExternalID, &p.ItemID); scanErr != nil {
			return nil, s.e.scanError(scanErr)
		}

		projections = append(projections, p)
	}

	s.e.logOperation(
		actionFindAvailable,
		logAttrRowCount, len(projections),
		logAttrDurationMS, s.e.durationToMilliseconds(duration))

	return projections, nil
}

// Insert adds a new item with caller-supplied metadata.
// Returns circulation.ErrConstraint if the identifier already exists.
func (s CatalogStore) Insert(ctx context.Context, item circulation.Item) error {
	metadataJSON, marshalErr := jsonCodec.Marshal(item.Metadata)
	if marshalErr != nil {
		return errors.Join(circulation.ErrValidation, marshalErr)
	}

	builder := s.e.builder()

	sameID := builder.
		From(s.e.tables.items).
		Select(goqu.V(1)).
		Where(goqu.C(colID).Eq(item.ID))

	selectStmt := builder.
		Select(
			goqu.V(item.ID),
			goqu.V(item.Title),
			goqu.V(item.Authors),
			goqu.V(item.ISBN),
			goqu.V(item.ISBN13),
			goqu.V(string(metadataJSON)),
			goqu.V(item.Available),
		).
		Where(goqu.L("NOT EXISTS ?", sameID))

	insertStmt := builder.
		Insert(s.e.tables.items).
		Cols(colID, colTitle, colAuthors, colISBN, colISBN13, colMetadata, colAvailable).
		FromQuery(selectStmt)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return s.e.buildError(actionInsertItem, toSQLErr)
	}

	rowsAffected, duration, execErr := s.e.executeStatement(ctx, sqlQuery, actionInsertItem)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return circulation.ErrConstraint
	}

	s.e.logOperation(
		actionInsertItem,
		logAttrItemID, item.ID,
		logAttrDurationMS, s.e.durationToMilliseconds(duration))

	return nil
}

// SetAvailability flips the availability flag of an item.
// Returns circulation.ErrNotFound if the identifier is unknown.
func (s CatalogStore) SetAvailability(ctx context.Context, itemID int64, available bool) error {
	updateStmt := s.e.builder().
		Update(s.e.tables.items).
		Set(goqu.Record{colAvailable: available}).
		Where(goqu.C(colID).Eq(itemID))

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return s.e.buildError(actionSetAvailability, toSQLErr)
	}

	rowsAffected, duration, execErr := s.e.executeStatement(ctx, sqlQuery, actionSetAvailability)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return circulation.ErrNotFound
	}

	s.e.logOperation(
		actionSetAvailability,
		logAttrItemID, itemID,
		"available", available,
		logAttrDurationMS, s.e.durationToMilliseconds(duration))

	return nil
}

// Get returns the full item record including its classification metadata.
// Returns circulation.ErrNotFound if the identifier is unknown.
func (s CatalogStore) Get(ctx context.Context, itemID int64) (circulation.Item, error) {
	selectStmt := s.e.builder().
		From(s.e.tables.items).
		Select(goqu.C(colTitle), goqu.C(colAuthors), goqu.C(colISBN), goqu.C(colISBN13), goqu.C(colMetadata), goqu.C(colAvailable)).
		Where(goqu.C(colID).Eq(itemID))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return circulation.Item{}, s.e.buildError(actionGetItem, toSQLErr)
	}

	rows, _, queryErr := s.e.executeQuery(ctx, sqlQuery, actionGetItem)
	if queryErr != nil {
		return circulation.Item{}, queryErr
	}
	defer s.e.closeRows(rows)

	if !rows.Next() {
		return circulation.Item{}, circulation.ErrNotFound
	}

	item := circulation.Item{ID: itemID}
	var metadataJSON string
	var available boolColumn

	if scanErr := rows.Scan(&item.Title, &item.Authors, &item.ISBN, &item.ISBN13, &metadataJSON, &available); scanErr != nil {
		return circulation.Item{}, s.e.scanError(scanErr)
	}

	item.Available = available.value

	if unmarshalErr := jsonCodec.UnmarshalFromString(metadataJSON, &item.Metadata); unmarshalErr != nil {
		return circulation.Item{}, errors.Join(circulation.ErrStore, unmarshalErr)
	}

	return item, nil
}

// NextID returns the smallest identifier above every existing one,
// for callers adding items outside of bulk import.
func (s CatalogStore) NextID(ctx context.Context) (int64, error) {
	selectStmt := s.e.builder().
		From(s.e.tables.items).
		Select(goqu.COALESCE(goqu.MAX(colID), 0))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return 0, s.e.buildError(actionNextID, toSQLErr)
	}

	rows, _, queryErr := s.e.executeQuery(ctx, sqlQuery, actionNextID)
	if queryErr != nil {
		return 0, queryErr
	}
	defer s.e.closeRows(rows)

	var maxID int64

	if rows.Next() {
		if scanErr := rows.Scan(&maxID); scanErr != nil {
			return 0, s.e.scanError(scanErr)
		}
	}

	return maxID + 1, nil
}

// IsEmpty reports whether the catalog holds no items at all.
// Bulk import consults it to avoid populating the catalog twice.
func (s CatalogStore) IsEmpty(ctx context.Context) (bool, error) {
	selectStmt := s.e.builder().
		From(s.e.tables.items).
		Select(goqu.C(colID)).
		Limit(1)

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return false, s.e.buildError(actionIsEmpty, toSQLErr)
	}

	rows, _, queryErr := s.e.executeQuery(ctx, sqlQuery, actionIsEmpty)
	if queryErr != nil {
		return false, queryErr
	}
	defer s.e.closeRows(rows)

	return !rows.Next(), nil
}
