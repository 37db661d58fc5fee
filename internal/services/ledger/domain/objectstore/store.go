// Package objectstore holds committed ledger objects and the rules that
// decide whether a transaction's changes may be applied to them.
package objectstore

import (
	"context"

	"github.com/louisbranch/objectledger/internal/services/ledger/domain/object"
)

// Reader reads committed object state.
type Reader interface {
	// Get returns the committed object or a NotFound error.
	Get(ctx context.Context, id object.ID) (object.Object, error)
	// List returns committed objects matching filter in creation order.
	List(ctx context.Context, filter Filter) ([]object.Object, error)
}

// Filter selects objects for List. Zero fields match everything.
type Filter struct {
	Type  string
	Owner object.Address
	// Limit caps the result size when positive.
	Limit int
}

// Match reports whether obj satisfies the filter.
func (f Filter) Match(obj object.Object) bool {
	if f.Type != "" && obj.Type != f.Type {
		return false
	}
	if f.Owner != "" && !obj.Owner.OwnedBy(f.Owner) {
		return false
	}
	return true
}
