package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/objectstore"
)

const objectColumns = "id, version, owner_kind, owner_address, type, payload_json"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObject(row rowScanner) (object.Object, error) {
	var (
		obj          object.Object
		id           string
		version      int64
		ownerKind    string
		ownerAddress string
		payload      string
	)
	if err := row.Scan(&id, &version, &ownerKind, &ownerAddress, &obj.Type, &payload); err != nil {
		return object.Object{}, err
	}
	obj.ID = object.ID(id)
	obj.Version = uint64(version)
	obj.Owner = object.Owner{Kind: object.OwnerKind(ownerKind), Address: object.Address(ownerAddress)}
	obj.Payload = []byte(payload)
	return obj, nil
}

// Get returns a committed object.
func (s *Store) Get(ctx context.Context, id object.ID) (object.Object, error) {
	if err := s.ready(); err != nil {
		return object.Object{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+objectColumns+" FROM objects WHERE id = ?", string(id))
	obj, err := scanObject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return object.Object{}, objectstore.NotFound(id)
	}
	if isBusyError(err) {
		return object.Object{}, objectstore.Busy(string(id), err)
	}
	if err != nil {
		return object.Object{}, fmt.Errorf("get object %s: %w", id, err)
	}
	return obj, nil
}

// List returns committed objects matching filter in creation order.
func (s *Store) List(ctx context.Context, filter objectstore.Filter) ([]object.Object, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var (
		where  []string
		params []any
	)
	if filter.Type != "" {
		where = append(where, "type = ?")
		params = append(params, filter.Type)
	}
	if filter.Owner != "" {
		where = append(where, "owner_kind = ? AND owner_address = ?")
		params = append(params, string(object.OwnerExclusive), string(filter.Owner))
	}
	query := "SELECT " + objectColumns + " FROM objects"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		params = append(params, filter.Limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if isBusyError(err) {
		return nil, objectstore.Busy("objects", err)
	}
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	defer rows.Close()

	var out []object.Object
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		out = append(out, obj)
	}
	if err := rows.Err(); isBusyError(err) {
		return nil, objectstore.Busy("objects", err)
	} else if err != nil {
		return nil, fmt.Errorf("iterate objects: %w", err)
	}
	return out, nil
}
